package design

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goa.design/goa/v3/eval"
	"goa.design/goa/v3/expr"
)

func TestDesignEvaluates(t *testing.T) {
	require.NoError(t, eval.RunDSL())
	assert.Equal(t, "inquiryflow", expr.Root.API.Name)

	for svc, methods := range map[string][]string{
		"health":    {"check"},
		"auth":      {"login"},
		"inquiries": {"submit", "submit_manual", "get", "update_status"},
		"sync":      {"status", "attempts", "retry", "find_duplicates"},
		"work":      {"list_tasks", "complete_task", "list_activity", "mark_read"},
	} {
		s := expr.Root.Service(svc)
		require.NotNil(t, s, svc)
		for _, m := range methods {
			assert.NotNil(t, s.Method(m), svc+"."+m)
		}
	}

	retry := expr.Root.API.HTTP.Service("sync").Endpoint("retry")
	require.NotNil(t, retry)
	require.Len(t, retry.Routes, 1)
	assert.Equal(t, "POST", retry.Routes[0].Method)
	assert.Equal(t, "/api/v1/inquiries/{id}/sync/{target}", retry.Routes[0].Path)
}
