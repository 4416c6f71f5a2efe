// Package design describes the HTTP API for goa's openapi generator. The
// handlers in internal/server implement these routes.
package design

import (
	. "goa.design/goa/v3/dsl"
)

var _ = API("precisionworks", func() {
	Title("Precision Works API")
	Description("Contact request intake and staff triage for Precision Works manufacturing")
	Version("1.0.0")
	Server("api", func() {
		Host("localhost", func() {
			URI("http://localhost:8000")
		})
	})
})

var ErrorBody = Type("ErrorBody", func() {
	Description("Service error")
	Attribute("name", String, "Error name", func() {
		Enum("bad_request", "unauthorized", "forbidden", "not_found", "conflict", "internal_error", "unavailable")
	})
	Attribute("id", String, "Error occurrence id")
	Attribute("message", String, "Error message")
	Attribute("temporary", Boolean)
	Attribute("timeout", Boolean)
	Attribute("fault", Boolean)
	Required("name", "message")
})

var JWTAuth = JWTSecurity("jwt", func() {
	Description("JWT authentication")
	Scope("admin", "User management")
	Scope("staff", "Contact request triage")
})

var Notice = Type("Notice", func() {
	Description("Transient message for the user")
	Attribute("kind", String, func() {
		Enum("success", "error")
	})
	Attribute("message", String)
	Required("kind", "message")
})

// Health and catalog

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

var HealthResult = ResultType("HealthResult", func() {
	Attribute("status", String, "healthy or degraded")
	Attribute("service", String, "Service name")
	Attribute("version", String, "Service version")
	Attribute("database", String, "Database connectivity")
	Required("status", "service", "version", "database")
})

var CatalogOption = Type("CatalogOption", func() {
	Attribute("id", String)
	Attribute("label", String)
	Required("id", "label")
})

var _ = Service("catalog", func() {
	Description("Selectable request types and product categories")
	Method("get", func() {
		Result(func() {
			Attribute("product_categories", ArrayOf(CatalogOption))
			Attribute("request_types", ArrayOf(CatalogOption))
		})
		HTTP(func() {
			GET("/api/v1/catalog")
			Response(StatusOK)
		})
	})
})

// Contact requests

var ContactRequest = ResultType("ContactRequest", func() {
	Attribute("id", UInt)
	Attribute("name", String)
	Attribute("email", String)
	Attribute("company", String)
	Attribute("phone", String)
	Attribute("request_type", String, func() {
		Enum("quote", "info", "support")
	})
	Attribute("product_interest", ArrayOf(String))
	Attribute("message", String)
	Attribute("deadline", String, func() {
		Format(FormatDateTime)
	})
	Attribute("status", String, func() {
		Enum("new", "in-progress", "completed", "cancelled")
	})
	Attribute("created_on", String, func() {
		Format(FormatDateTime)
	})
	Attribute("updated_at", String, func() {
		Format(FormatDateTime)
	})
	Required("id", "name", "email", "company", "request_type", "product_interest", "message", "status", "created_on")
})

var ContactSubmitPayload = Type("ContactSubmitPayload", func() {
	Attribute("name", String, "Full name", func() {
		Example("Jane Doe")
	})
	Attribute("email", String, "Email address", func() {
		Example("jane@example.com")
	})
	Attribute("company", String, "Company name")
	Attribute("phone", String, "Phone number", func() {
		Pattern(`^[0-9+\-() ]{10,15}$`)
	})
	Attribute("request_type", String, func() {
		Enum("quote", "info", "support")
		Default("quote")
	})
	Attribute("product_interest", ArrayOf(String), "Product category ids", func() {
		MinLength(1)
	})
	Attribute("message", String, func() {
		MinLength(10)
	})
	Attribute("deadline", String, "YYYY-MM-DD", func() {
		Format(FormatDate)
	})
	Required("name", "email", "company", "product_interest", "message")
})

var _ = Service("contact", func() {
	Description("Contact request submission and lookup")
	Error("bad_request", ErrorBody)
	Error("not_found", ErrorBody)
	Error("unauthorized", ErrorBody)
	Error("forbidden", ErrorBody)

	Method("submit", func() {
		Description("Validate and store a contact request in one call")
		Payload(ContactSubmitPayload)
		Result(func() {
			Attribute("id", UInt)
			Attribute("message", String)
			Required("id", "message")
		})
		HTTP(func() {
			POST("/api/v1/contact/submit")
			Response(StatusCreated)
			Response("bad_request", StatusBadRequest)
		})
	})

	Method("get", func() {
		Description("Get a contact request (staff only)")
		Security(JWTAuth, func() {
			Scope("staff")
		})
		Payload(func() {
			Token("token", String)
			Attribute("id", UInt)
			Required("id")
		})
		Result(ContactRequest)
		HTTP(func() {
			GET("/api/v1/contact-requests/{id}")
			Response(StatusOK)
			Response("not_found", StatusNotFound)
			Response("unauthorized", StatusUnauthorized)
			Response("forbidden", StatusForbidden)
		})
	})
})

// Multi-step intake form

var FormState = ResultType("FormState", func() {
	Attribute("form_data", func() {
		Attribute("name", String)
		Attribute("email", String)
		Attribute("company", String)
		Attribute("phone", String)
		Attribute("request_type", String)
		Attribute("product_interest", ArrayOf(String))
		Attribute("message", String)
		Attribute("deadline", String)
	})
	Attribute("errors", MapOf(String, String), "Field name to message")
	Attribute("current_step", Int, func() {
		Enum(1, 2)
	})
	Attribute("is_submitting", Boolean)
	Attribute("submitted", Boolean)
	Attribute("submission_id", UInt)
	Required("form_data", "errors", "current_step", "is_submitting", "submitted")
})

var SessionPayload = Type("SessionPayload", func() {
	Attribute("id", String, "Form session id")
	Required("id")
})

var _ = Service("intake", func() {
	Description("Server-held multi-step contact form sessions")
	Error("bad_request", ErrorBody)
	Error("not_found", ErrorBody)

	Method("create", func() {
		Result(func() {
			Attribute("session_id", String)
			Attribute("state", FormState)
			Required("session_id", "state")
		})
		HTTP(func() {
			POST("/api/v1/intake/sessions")
			Response(StatusCreated)
		})
	})

	Method("state", func() {
		Payload(SessionPayload)
		Result(func() {
			Attribute("state", FormState)
		})
		HTTP(func() {
			GET("/api/v1/intake/sessions/{id}")
			Response(StatusOK)
			Response("not_found", StatusNotFound)
		})
	})

	Method("close", func() {
		Payload(SessionPayload)
		HTTP(func() {
			DELETE("/api/v1/intake/sessions/{id}")
			Response(StatusNoContent)
			Response("not_found", StatusNotFound)
		})
	})

	Method("set_fields", func() {
		Description("Set text fields; each set clears that field's error")
		Payload(func() {
			Extend(SessionPayload)
			Attribute("fields", MapOf(String, String))
		})
		Result(func() {
			Attribute("state", FormState)
		})
		HTTP(func() {
			PATCH("/api/v1/intake/sessions/{id}/fields")
			Body("fields")
			Response(StatusOK)
			Response("bad_request", StatusBadRequest)
			Response("not_found", StatusNotFound)
		})
	})

	Method("toggle_product", func() {
		Payload(func() {
			Extend(SessionPayload)
			Attribute("tag", String, "Product category id")
			Attribute("included", Boolean)
			Required("tag", "included")
		})
		Result(func() {
			Attribute("state", FormState)
		})
		HTTP(func() {
			POST("/api/v1/intake/sessions/{id}/products")
			Response(StatusOK)
			Response("bad_request", StatusBadRequest)
			Response("not_found", StatusNotFound)
		})
	})

	Method("advance", func() {
		Description("Validate the contact step and move to the details step")
		Payload(SessionPayload)
		Result(func() {
			Attribute("advanced", Boolean)
			Attribute("scroll_to", String, "Element to scroll into view")
			Attribute("state", FormState)
		})
		HTTP(func() {
			POST("/api/v1/intake/sessions/{id}/advance")
			Response(StatusOK)
			Response("not_found", StatusNotFound)
		})
	})

	Method("retreat", func() {
		Payload(SessionPayload)
		Result(func() {
			Attribute("state", FormState)
		})
		HTTP(func() {
			POST("/api/v1/intake/sessions/{id}/retreat")
			Response(StatusOK)
			Response("not_found", StatusNotFound)
		})
	})

	Method("submit", func() {
		Payload(SessionPayload)
		Result(func() {
			Attribute("notices", ArrayOf(Notice))
			Attribute("state", FormState)
		})
		HTTP(func() {
			POST("/api/v1/intake/sessions/{id}/submit")
			Response(StatusOK)
			Response("not_found", StatusNotFound)
		})
	})
})

// Staff triage

var BoardView = ResultType("BoardView", func() {
	Attribute("requests", ArrayOf(ContactRequest))
	Attribute("loading", Boolean)
	Attribute("current_page", Int)
	Attribute("page_size", Int)
	Attribute("status_filter", String, func() {
		Enum("all", "new", "in-progress", "completed", "cancelled")
	})
	Attribute("total_pages", Int)
	Attribute("has_previous", Boolean)
	Attribute("has_next", Boolean)
	Attribute("notices", ArrayOf(Notice))
	Required("requests", "current_page", "page_size", "status_filter", "total_pages", "notices")
})

var _ = Service("triage", func() {
	Description("Per-user paginated board of contact requests")
	Security(JWTAuth, func() {
		Scope("staff")
	})
	Error("bad_request", ErrorBody)
	Error("unauthorized", ErrorBody)
	Error("forbidden", ErrorBody)

	Method("board", func() {
		Payload(func() {
			Token("token", String)
			Attribute("page_size", Int, func() {
				Minimum(1)
			})
			Attribute("status", String)
			Attribute("page", Int, func() {
				Minimum(1)
			})
		})
		Result(BoardView)
		HTTP(func() {
			GET("/api/v1/triage")
			Param("page_size")
			Param("status")
			Param("page")
			Response(StatusOK)
			Response("bad_request", StatusBadRequest)
		})
	})

	Method("set_filter", func() {
		Payload(func() {
			Token("token", String)
			Attribute("status", String)
			Required("status")
		})
		Result(BoardView)
		HTTP(func() {
			PUT("/api/v1/triage/filter")
			Response(StatusOK)
			Response("bad_request", StatusBadRequest)
		})
	})

	Method("set_page", func() {
		Payload(func() {
			Token("token", String)
			Attribute("page", Int, func() {
				Minimum(1)
			})
			Required("page")
		})
		Result(BoardView)
		HTTP(func() {
			PUT("/api/v1/triage/page")
			Response(StatusOK)
			Response("bad_request", StatusBadRequest)
		})
	})

	Method("change_status", func() {
		Payload(func() {
			Token("token", String)
			Attribute("id", UInt)
			Attribute("status", String)
			Required("id", "status")
		})
		Result(BoardView)
		HTTP(func() {
			PUT("/api/v1/triage/requests/{id}/status")
			Response(StatusOK)
			Response("bad_request", StatusBadRequest)
		})
	})

	Method("delete", func() {
		Description("Delete a request. Nothing happens unless confirm is true.")
		Payload(func() {
			Token("token", String)
			Attribute("id", UInt)
			Attribute("confirm", Boolean, func() {
				Default(false)
			})
			Required("id")
		})
		Result(BoardView)
		HTTP(func() {
			DELETE("/api/v1/triage/requests/{id}")
			Param("confirm")
			Response(StatusOK)
			Response("bad_request", StatusBadRequest)
		})
	})
})

var _ = Service("dashboard", func() {
	Description("Request counts per status and the newest requests")
	Security(JWTAuth, func() {
		Scope("staff")
	})
	Error("unavailable", ErrorBody)

	Method("get", func() {
		Payload(func() {
			Token("token", String)
		})
		Result(func() {
			Attribute("stats", func() {
				Attribute("total", Int64)
				Attribute("new", Int64)
				Attribute("in_progress", Int64)
				Attribute("completed", Int64)
				Attribute("cancelled", Int64)
			})
			Attribute("recent_requests", ArrayOf(ContactRequest))
		})
		HTTP(func() {
			GET("/api/v1/dashboard")
			Response(StatusOK)
			Response("unavailable", StatusServiceUnavailable)
		})
	})
})

// Authentication

var UserResult = ResultType("UserResult", func() {
	Attribute("id", UInt, "User ID")
	Attribute("username", String)
	Attribute("email", String)
	Attribute("full_name", String)
	Attribute("is_active", Boolean)
	Attribute("is_admin", Boolean)
	Attribute("is_staff", Boolean)
	Attribute("created_at", String)
	Attribute("updated_at", String)
	Attribute("last_login", String)
	Required("id", "username", "email", "is_active", "is_admin", "is_staff", "created_at")
})

var _ = Service("auth", func() {
	Description("Authentication and user management")
	Error("bad_request", ErrorBody)
	Error("unauthorized", ErrorBody)
	Error("forbidden", ErrorBody)
	Error("conflict", ErrorBody)

	Method("login", func() {
		Payload(func() {
			Attribute("username", String)
			Attribute("password", String)
			Required("username", "password")
		})
		Result(func() {
			Attribute("access_token", String)
			Attribute("token_type", String, func() {
				Default("bearer")
			})
			Attribute("expires_in", Int, "Seconds until the token expires")
			Required("access_token", "token_type", "expires_in")
		})
		HTTP(func() {
			POST("/api/v1/auth/login")
			Response(StatusOK)
			Response("unauthorized", StatusUnauthorized)
		})
	})

	Method("logout", func() {
		Description("Revoke the presented token and drop the user's triage board")
		Security(JWTAuth)
		Payload(func() {
			Token("token", String)
		})
		Result(func() {
			Attribute("message", String)
		})
		HTTP(func() {
			POST("/api/v1/auth/logout")
			Response(StatusOK)
			Response("unauthorized", StatusUnauthorized)
		})
	})

	Method("me", func() {
		Security(JWTAuth)
		Payload(func() {
			Token("token", String)
		})
		Result(UserResult)
		HTTP(func() {
			GET("/api/v1/auth/me")
			Response(StatusOK)
			Response("unauthorized", StatusUnauthorized)
		})
	})

	Method("create_user", func() {
		Security(JWTAuth, func() {
			Scope("admin")
		})
		Payload(func() {
			Token("token", String)
			Attribute("username", String)
			Attribute("email", String)
			Attribute("password", String, func() {
				MinLength(8)
			})
			Attribute("full_name", String)
			Attribute("is_active", Boolean, func() {
				Default(true)
			})
			Attribute("is_admin", Boolean)
			Attribute("is_staff", Boolean)
			Required("username", "email", "password")
		})
		Result(UserResult)
		HTTP(func() {
			POST("/api/v1/auth/users")
			Response(StatusCreated)
			Response("bad_request", StatusBadRequest)
			Response("conflict", StatusConflict)
			Response("forbidden", StatusForbidden)
		})
	})

	Method("list_users", func() {
		Security(JWTAuth, func() {
			Scope("admin")
		})
		Payload(func() {
			Token("token", String)
			Attribute("skip", Int, func() {
				Minimum(0)
			})
			Attribute("limit", Int, func() {
				Default(100)
				Minimum(1)
			})
		})
		Result(ArrayOf(UserResult))
		HTTP(func() {
			GET("/api/v1/auth/users")
			Param("skip")
			Param("limit")
			Response(StatusOK)
			Response("forbidden", StatusForbidden)
		})
	})
})
