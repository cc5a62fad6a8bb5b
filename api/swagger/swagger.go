package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Similarity Check Bridge API",
        "description": "Sends LMS submissions to the similarity service and tracks their reports",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Submissions", "description": "Submission intake and lifecycle operations"},
        {"name": "Viewer", "description": "Similarity report viewer"},
        {"name": "Reports", "description": "Score exports"},
        {"name": "Features", "description": "Tenant feature set"},
        {"name": "Observability", "description": "Metrics and probes"}
    ],
    "paths": {
        "/submissions": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Queue a submission for similarity checking",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/QueueSubmissionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "200": {"description": "Already queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Module not enabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Submissions"],
                "summary": "Resolve the submission an LMS event refers to",
                "parameters": [
                    {"name": "cm_id", "in": "query", "required": true, "type": "string"},
                    {"name": "user_id", "in": "query", "type": "string"},
                    {"name": "identifier", "in": "query", "type": "string"},
                    {"name": "item_id", "in": "query", "type": "string"},
                    {"name": "type", "in": "query", "required": true, "type": "string", "enum": ["file", "content"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/submissions/{id}": {
            "get": {
                "tags": ["Submissions"],
                "summary": "Submission detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/submissions/{id}/steps/{step}": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Run one lifecycle step now",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "step", "in": "path", "required": true, "type": "string", "enum": ["create", "upload", "request_report", "poll_score"]}
                ],
                "responses": {
                    "200": {"description": "Step finished", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Submission not in a valid state", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Similarity service unreachable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/submissions/{id}/retry": {
            "post": {
                "tags": ["Submissions"],
                "summary": "Re-enter a failed submission at the step that failed",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Reset", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Submission has not failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/submissions/{id}/viewer-url": {
            "post": {
                "tags": ["Viewer"],
                "summary": "Launch URL for the similarity viewer",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not allowed to view this submission", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Similarity service rejected the launch", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/modules/{id}/scores": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download the similarity scores of a course module",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Report file"}
                }
            }
        },
        "/features": {
            "get": {
                "tags": ["Features"],
                "summary": "Tenant features reported by the similarity service",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/features/refresh": {
            "post": {
                "tags": ["Features"],
                "summary": "Drop the cached tenant features and fetch them again",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Bridge metrics summary",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "QueueSubmissionRequest": {
            "type": "object",
            "required": ["cm_id", "submitter_id", "type"],
            "properties": {
                "cm_id": {"type": "string"},
                "user_id": {"type": "string"},
                "group_id": {"type": "string"},
                "submitter_id": {"type": "string"},
                "item_id": {"type": "string"},
                "type": {"type": "string", "enum": ["file", "content"]},
                "pathname_hash": {"type": "string"},
                "content": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
