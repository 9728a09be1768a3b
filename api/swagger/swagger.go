package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Afterschool Match API",
        "description": "Enrollment admission control and teacher/course matching for afterschool programs.",
        "version": "1.0.0"
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
        {"name": "Enrollments", "description": "Seat admission and drops"},
        {"name": "Matching", "description": "Teacher and course rankings"},
        {"name": "Parameters", "description": "Admin parameter surface"},
        {"name": "Exports", "description": "Course roster documents"},
        {"name": "Internal", "description": "Service to service hooks"}
    ],
    "paths": {
        "/children/{childId}/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List a child's enrollments",
                "parameters": [
                    {"name": "childId", "in": "path", "required": true, "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll a child into a course",
                "parameters": [
                    {"name": "childId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnrollRequest"}}
                ],
                "responses": {
                    "201": {"description": "Enrolled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Child or course not found"},
                    "409": {"description": "CAPACITY_EXCEEDED or ALREADY_ENROLLED"},
                    "503": {"description": "BUSY"}
                }
            }
        },
        "/children/{childId}/enrollments/{courseId}/drop": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Drop a child's active enrollment",
                "parameters": [
                    {"name": "childId", "in": "path", "required": true, "type": "string"},
                    {"name": "courseId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Dropped"},
                    "409": {"description": "NOT_ENROLLED"},
                    "503": {"description": "BUSY"}
                }
            }
        },
        "/children/{childId}/ranked-teachers": {
            "get": {
                "tags": ["Matching"],
                "summary": "Rank active teachers for a child",
                "parameters": [
                    {"name": "childId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Ranked teachers, meta.weight_version", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "INVALID_WEIGHTS"}
                }
            }
        },
        "/children/{childId}/ranked-courses": {
            "get": {
                "tags": ["Matching"],
                "summary": "Rank courses for a child",
                "parameters": [
                    {"name": "childId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Ranked courses", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "INVALID_WEIGHTS"}
                }
            }
        },
        "/children/{childId}/match-records": {
            "get": {
                "tags": ["Matching"],
                "summary": "Match record history for a child",
                "parameters": [
                    {"name": "childId", "in": "path", "required": true, "type": "string"},
                    {"name": "teacher_id", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/parameters": {
            "get": {
                "tags": ["Parameters"],
                "summary": "List parameters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/parameters/weights": {
            "get": {
                "tags": ["Parameters"],
                "summary": "Current matching weights",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "INVALID_WEIGHTS"}
                }
            },
            "put": {
                "tags": ["Parameters"],
                "summary": "Replace all matching weights",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateWeightsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "INVALID_WEIGHTS"}
                }
            }
        },
        "/admin/parameters/{name}": {
            "get": {
                "tags": ["Parameters"],
                "summary": "Get parameter by name",
                "parameters": [
                    {"name": "name", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Parameters"],
                "summary": "Create or replace a parameter",
                "parameters": [
                    {"name": "name", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateParameterRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/courses/{courseId}/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List a course's enrollments",
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/courses/{courseId}/roster.{format}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export a course roster",
                "produces": ["text/csv", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"name": "courseId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "path", "required": true, "type": "string", "enum": ["csv", "pdf", "xlsx"]}
                ],
                "responses": {
                    "200": {"description": "Roster document", "schema": {"type": "file"}},
                    "404": {"description": "Course not found or exports disabled"}
                }
            }
        },
        "/internal/teachers/{teacherId}/rating-changed": {
            "post": {
                "tags": ["Internal"],
                "summary": "Notify a teacher rating change",
                "parameters": [
                    {"name": "teacherId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RatingChangedRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "EnrollRequest": {
            "type": "object",
            "required": ["course_id"],
            "properties": {
                "course_id": {"type": "string"}
            }
        },
        "UpdateWeightsRequest": {
            "type": "object",
            "required": ["rating", "interest", "style"],
            "properties": {
                "rating": {"type": "integer"},
                "interest": {"type": "integer"},
                "style": {"type": "integer"}
            }
        },
        "UpdateParameterRequest": {
            "type": "object",
            "required": ["type", "value"],
            "properties": {
                "type": {"type": "string", "enum": ["weight", "price", "limit", "config"]},
                "value": {"type": "string"},
                "scope": {"type": "string"}
            }
        },
        "RatingChangedRequest": {
            "type": "object",
            "required": ["current_avg_score"],
            "properties": {
                "previous_avg_score": {"type": "number"},
                "current_avg_score": {"type": "number"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
