// Package design describes the HTTP API contract. internal/services serves
// it on the goa runtime.
package design

import (
	. "goa.design/goa/v3/dsl"
)

var _ = API("inquiryflow", func() {
	Title("Inquiry Orchestrator API")
	Description("Records service inquiries, fans them out to staff and keeps the CRMs in sync")
	Version("1.0.0")
	Server("api", func() {
		Host("localhost", func() {
			URI("http://localhost:8000")
		})
	})
})

// Common error types
var Unauthorized = Type("Unauthorized", func() {
	Description("Unauthorized access")
	Attribute("code", String, "Error code", func() {
		Example("UNAUTHORIZED")
	})
	Attribute("message", String, "Error message", func() {
		Example("Unauthorized")
	})
})

var NotFound = Type("NotFound", func() {
	Description("Resource not found")
	Attribute("code", String, "Error code", func() {
		Example("NOT_FOUND")
	})
	Attribute("message", String, "Error message", func() {
		Example("Resource not found")
	})
})

var BadRequest = Type("BadRequest", func() {
	Description("Bad request")
	Attribute("code", String, "Error code", func() {
		Example("VALIDATION_ERROR")
	})
	Attribute("message", String, "Error message", func() {
		Example("Invalid request")
	})
	Attribute("details", MapOf(String, Any), "Per-field errors")
})

// JWT Security
var JWTAuth = JWTSecurity("jwt", func() {
	Description("JWT authentication")
	Scope("admin", "Admin access")
	Scope("staff", "Staff access")
})

// Health check
var _ = Service("health", func() {
	Description("Health check service")
	Method("check", func() {
		Result(HealthResult)
		HTTP(func() {
			GET("/health")
			Response(StatusOK)
		})
	})
})

var HealthResult = Type("HealthResult", func() {
	Attribute("status", String, "Service status", func() {
		Enum("healthy", "degraded")
	})
	Attribute("service", String, "Service name")
	Attribute("version", String, "Service version")
	Attribute("database", String, "Database connectivity", func() {
		Example("ok")
	})
	Required("status", "service", "version", "database")
})

// Authentication service
var _ = Service("auth", func() {
	Description("Staff authentication")
	Error("unauthorized", Unauthorized)

	Method("login", func() {
		Description("Authenticate a staff account and return a JWT")
		Payload(LoginPayload)
		Result(LoginResult)
		Error("unauthorized")
		HTTP(func() {
			POST("/api/v1/auth/login")
			Response(StatusOK)
			Response("unauthorized", StatusUnauthorized)
		})
	})
})

var LoginPayload = Type("LoginPayload", func() {
	Attribute("username", String, "Username", func() {
		MinLength(1)
		Example("sam")
	})
	Attribute("password", String, "Password", func() {
		MinLength(1)
	})
	Required("username", "password")
})

var LoginResult = Type("LoginResult", func() {
	Attribute("access_token", String, "JWT access token")
	Attribute("token_type", String, "Token type", func() {
		Default("bearer")
	})
	Required("access_token", "token_type")
})

var SyncRecord = Type("SyncRecord", func() {
	Description("One CRM's sync state on an inquiry")
	Attribute("status", String, "Sync state", func() {
		Enum("", "pending", "success", "failed")
	})
	Attribute("external_id", String, "Record id in the CRM")
	Attribute("external_url", String, "Browser link to the CRM record")
	Attribute("last_error", String, "Last failure message")
	Attribute("error_code", String, "Last failure code")
	Attribute("attempted_at", String, "Last attempt", func() {
		Format(FormatDateTime)
	})
	Attribute("synced_at", String, "Last success", func() {
		Format(FormatDateTime)
	})
})

var InquiryResult = Type("InquiryResult", func() {
	Attribute("id", String, "Inquiry id")
	Attribute("form_type", String, "Form variant", func() {
		Enum("contact", "intake", "referral")
	})
	Attribute("service_area", String, "Program the inquiry belongs to")
	Attribute("form_data", MapOf(String, Any), "Submitted form fields")
	Attribute("status", String, "Lifecycle status", func() {
		Enum("submitted", "scheduled", "intake-scheduled", "closed")
	})
	Attribute("scheduling_time", String, "Requested or booked time")
	Attribute("submitted_at", String, "Submission time", func() {
		Format(FormatDateTime)
	})
	Attribute("submitted_by", String, "Staff username, or anonymous")
	Attribute("reviewed", Boolean, "Reviewed by staff")
	Attribute("insightly_sync", SyncRecord)
	Attribute("monday_sync", SyncRecord)
	Required("id", "form_type", "service_area", "form_data", "status", "submitted_at", "submitted_by")
})

var DuplicateMatch = Type("DuplicateMatch", func() {
	Attribute("external_lead_id", String, "Lead id in the CRM")
	Attribute("full_name", String, "Lead name")
	Attribute("status", String, "Lead status")
	Attribute("external_url", String, "Browser link to the lead")
	Attribute("matched_by", String, "What matched", func() {
		Enum("name", "email", "both")
	})
})

var DuplicateResult = Type("DuplicateResult", func() {
	Attribute("has_potential_duplicates", Boolean, "At least one match")
	Attribute("matches", ArrayOf(DuplicateMatch), "Candidate leads, best first")
	Attribute("searched_name", String, "The name that was searched")
	Attribute("advisory", String, "Outcome", func() {
		Enum("clear", "matches", "unknown")
	})
	Attribute("error", String, "Why the check could not run")
	Required("has_potential_duplicates", "matches", "searched_name", "advisory")
})

// Inquiry service
var _ = Service("inquiries", func() {
	Description("Inquiry intake and lifecycle")
	Error("not_found", NotFound)
	Error("bad_request", BadRequest)
	Error("unauthorized", Unauthorized)

	Method("submit", func() {
		Description("Record a public form submission")
		Payload(SubmitPayload)
		Result(InquiryResult)
		Error("bad_request")
		HTTP(func() {
			POST("/api/v1/inquiries")
			Response(StatusCreated)
			Response("bad_request", StatusBadRequest)
		})
	})

	Method("submit_manual", func() {
		Description("Record an intake entered by staff, with a duplicate advisory")
		Security(JWTAuth, func() {
			Scope("staff")
		})
		Payload(ManualSubmitPayload)
		Result(ManualSubmitResult)
		Error("bad_request")
		Error("unauthorized")
		HTTP(func() {
			POST("/api/v1/inquiries/manual")
			Response(StatusCreated)
			Response("bad_request", StatusBadRequest)
			Response("unauthorized", StatusUnauthorized)
		})
	})

	Method("get", func() {
		Description("Get an inquiry (Staff/Admin only)")
		Security(JWTAuth, func() {
			Scope("staff")
		})
		Payload(func() {
			Token("token", String, "JWT token")
			Attribute("id", String, "Inquiry id")
			Required("id")
		})
		Result(InquiryResult)
		Error("not_found")
		Error("unauthorized")
		HTTP(func() {
			GET("/api/v1/inquiries/{id}")
			Response(StatusOK)
			Response("not_found", StatusNotFound)
			Response("unauthorized", StatusUnauthorized)
		})
	})

	Method("update_status", func() {
		Description("Move an inquiry through its lifecycle")
		Security(JWTAuth, func() {
			Scope("staff")
		})
		Payload(func() {
			Token("token", String, "JWT token")
			Attribute("id", String, "Inquiry id")
			Attribute("status", String, "New status", func() {
				Enum("submitted", "scheduled", "intake-scheduled", "closed")
			})
			Attribute("scheduling_time", String, "Booked time")
			Required("id", "status")
		})
		Result(InquiryResult)
		Error("not_found")
		Error("bad_request")
		Error("unauthorized")
		HTTP(func() {
			PATCH("/api/v1/inquiries/{id}/status")
			Response(StatusOK)
			Response("not_found", StatusNotFound)
			Response("bad_request", StatusBadRequest)
			Response("unauthorized", StatusUnauthorized)
		})
	})
})

var SubmitPayload = Type("SubmitPayload", func() {
	Attribute("form_type", String, "Form variant", func() {
		Enum("contact", "intake", "referral")
	})
	Attribute("service_area", String, "Program the inquiry belongs to", func() {
		MinLength(1)
	})
	Attribute("form_data", MapOf(String, Any), "Form fields")
	Required("form_type", "service_area", "form_data")
})

var ManualSubmitPayload = Type("ManualSubmitPayload", func() {
	Token("token", String, "JWT token")
	Extend(SubmitPayload)
	Attribute("skip_duplicate_check", Boolean, "Staff already reviewed the candidates", func() {
		Default(false)
	})
})

var ManualSubmitResult = Type("ManualSubmitResult", func() {
	Attribute("inquiry", InquiryResult)
	Attribute("duplicates", DuplicateResult)
	Required("inquiry")
})

var SyncAttemptResult = Type("SyncAttemptResult", func() {
	Attribute("id", String, "Attempt id")
	Attribute("target", String, "CRM", func() {
		Enum("insightly", "monday")
	})
	Attribute("operation", String, "create or update")
	Attribute("outcome", String, "success or failed")
	Attribute("trigger", String, "What started the attempt", func() {
		Enum("event", "retry", "sweep")
	})
	Attribute("error_code", String, "Failure code")
	Attribute("error", String, "Failure message")
	Attribute("started_at", String, "Start time", func() {
		Format(FormatDateTime)
	})
})

var SyncOutcome = Type("SyncOutcome", func() {
	Attribute("target", String, "CRM")
	Attribute("success", Boolean, "Sync succeeded")
	Attribute("operation", String, "create or update")
	Attribute("external_id", String, "Record id in the CRM")
	Attribute("external_url", String, "Browser link to the CRM record")
	Attribute("error", String, "Failure message")
	Attribute("error_code", String, "Failure code")
	Required("target", "success")
})

// Sync service
var _ = Service("sync", func() {
	Description("CRM sync state, manual retry and duplicate checks (Staff/Admin only)")
	Security(JWTAuth, func() {
		Scope("staff")
	})
	Error("not_found", NotFound)
	Error("bad_request", BadRequest)
	Error("unauthorized", Unauthorized)

	Method("status", func() {
		Payload(func() {
			Token("token", String, "JWT token")
			Attribute("id", String, "Inquiry id")
			Required("id")
		})
		Result(func() {
			Attribute("inquiry_id", String)
			Attribute("targets", MapOf(String, SyncRecord))
			Required("inquiry_id", "targets")
		})
		Error("not_found")
		HTTP(func() {
			GET("/api/v1/inquiries/{id}/sync")
			Response(StatusOK)
			Response("not_found", StatusNotFound)
			Response("unauthorized", StatusUnauthorized)
		})
	})

	Method("attempts", func() {
		Payload(func() {
			Token("token", String, "JWT token")
			Attribute("id", String, "Inquiry id")
			Required("id")
		})
		Result(ArrayOf(SyncAttemptResult))
		Error("not_found")
		HTTP(func() {
			GET("/api/v1/inquiries/{id}/sync/attempts")
			Response(StatusOK)
			Response("not_found", StatusNotFound)
			Response("unauthorized", StatusUnauthorized)
		})
	})

	Method("retry", func() {
		Description("Re-run one CRM sync")
		Payload(func() {
			Token("token", String, "JWT token")
			Attribute("id", String, "Inquiry id")
			Attribute("target", String, "CRM", func() {
				Enum("insightly", "monday")
			})
			Required("id", "target")
		})
		Result(SyncOutcome)
		Error("not_found")
		Error("bad_request")
		HTTP(func() {
			POST("/api/v1/inquiries/{id}/sync/{target}")
			Response(StatusOK)
			Response("not_found", StatusNotFound)
			Response("bad_request", StatusBadRequest)
			Response("unauthorized", StatusUnauthorized)
		})
	})

	Method("find_duplicates", func() {
		Payload(func() {
			Token("token", String, "JWT token")
			Attribute("name", String, "Full name")
			Attribute("email", String, "Email address")
			Required("name")
		})
		Result(DuplicateResult)
		HTTP(func() {
			GET("/api/v1/duplicates")
			Param("name")
			Param("email")
			Response(StatusOK)
			Response("unauthorized", StatusUnauthorized)
		})
	})
})

var TaskResult = Type("TaskResult", func() {
	Attribute("id", String, "Task id")
	Attribute("title", String, "Title")
	Attribute("description", String, "Details")
	Attribute("type", String, "Task type")
	Attribute("priority", String, "Priority")
	Attribute("status", String, "pending or done")
	Attribute("assigned_to", String, "Staff username")
	Attribute("inquiry_id", String, "Related inquiry")
	Attribute("link", String, "Dashboard link")
	Attribute("due_at", String, "Due time", func() {
		Format(FormatDateTime)
	})
	Required("id", "title", "type", "status", "assigned_to")
})

var ActivityResult = Type("ActivityResult", func() {
	Attribute("id", String, "Activity id")
	Attribute("title", String, "Title")
	Attribute("message", String, "Message")
	Attribute("type", String, "Activity type")
	Attribute("recipient", String, "Staff username")
	Attribute("inquiry_id", String, "Related inquiry")
	Attribute("link", String, "Dashboard link")
	Attribute("read", Boolean, "Read by the recipient")
	Required("id", "title", "type", "recipient", "read")
})

// Work queue service
var _ = Service("work", func() {
	Description("The signed-in staff member's tasks and activity feed")
	Security(JWTAuth, func() {
		Scope("staff")
	})
	Error("not_found", NotFound)
	Error("unauthorized", Unauthorized)

	Method("list_tasks", func() {
		Payload(func() {
			Token("token", String, "JWT token")
			Attribute("status", String, "Filter", func() {
				Enum("pending", "done", "all")
				Default("pending")
			})
			Attribute("type", String, "Task type")
			Attribute("inquiry_id", String, "Related inquiry")
			Attribute("limit", Int, "Limit records", func() {
				Default(100)
				Minimum(1)
				Maximum(500)
			})
		})
		Result(ArrayOf(TaskResult))
		HTTP(func() {
			GET("/api/v1/tasks")
			Param("status")
			Param("type")
			Param("inquiry_id")
			Param("limit")
			Response(StatusOK)
			Response("unauthorized", StatusUnauthorized)
		})
	})

	Method("complete_task", func() {
		Payload(func() {
			Token("token", String, "JWT token")
			Attribute("id", String, "Task id")
			Required("id")
		})
		Result(TaskResult)
		Error("not_found")
		HTTP(func() {
			POST("/api/v1/tasks/{id}/complete")
			Response(StatusOK)
			Response("not_found", StatusNotFound)
			Response("unauthorized", StatusUnauthorized)
		})
	})

	Method("list_activity", func() {
		Payload(func() {
			Token("token", String, "JWT token")
			Attribute("unread", Boolean, "Only unread items", func() {
				Default(false)
			})
		})
		Result(ArrayOf(ActivityResult))
		HTTP(func() {
			GET("/api/v1/activity")
			Param("unread")
			Response(StatusOK)
			Response("unauthorized", StatusUnauthorized)
		})
	})

	Method("mark_read", func() {
		Payload(func() {
			Token("token", String, "JWT token")
			Attribute("id", String, "Activity id")
			Required("id")
		})
		Result(ActivityResult)
		Error("not_found")
		HTTP(func() {
			POST("/api/v1/activity/{id}/read")
			Response(StatusOK)
			Response("not_found", StatusNotFound)
			Response("unauthorized", StatusUnauthorized)
		})
	})
})
