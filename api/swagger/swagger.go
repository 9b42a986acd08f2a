package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetable API",
        "description": "Automatic course timetabling service: constraint-checked schedule generation, optimization and reporting.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Schedule", "description": "Scheduling runs, validation and timetable persistence"},
        {"name": "Reports", "description": "Statistics, reports and asynchronous exports"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Degraded"}
                }
            }
        },
        "/schedule/auto": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Run automatic scheduling for a term",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AutoScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/proposals/{id}/save": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Persist a previously generated proposal",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Proposal has conflicts"},
                    "410": {"description": "Proposal expired"}
                }
            }
        },
        "/schedule/validate": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Validate an assignment set against hard constraints",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ValidateScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/optimize": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Refine an existing assignment set",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/OptimizeScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/conflicts/check": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Probe one candidate placement for conflicts",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CheckConflictsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/import": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Atomically replace a term's timetable with an imported set",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BatchImportRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflicts rejected the batch", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/copy": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Copy a term's timetable into another term",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CopyScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Target occupied or copy conflicts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Source term has no schedule"}
                }
            }
        },
        "/schedule/{termId}": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Get the persisted timetable of a term",
                "parameters": [
                    {"name": "termId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Schedule"],
                "summary": "Drop the persisted timetable of a term",
                "parameters": [
                    {"name": "termId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/available-slots": {
            "get": {
                "tags": ["Schedule"],
                "summary": "List time slots where the probed resources are free",
                "parameters": [
                    {"name": "termId", "in": "query", "required": true, "type": "string"},
                    {"name": "courseId", "in": "query", "type": "string"},
                    {"name": "classroomId", "in": "query", "type": "string"},
                    {"name": "teacherId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/recommended-classrooms": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Rank compatible free classrooms for a section at a slot",
                "parameters": [
                    {"name": "termId", "in": "query", "required": true, "type": "string"},
                    {"name": "sectionId", "in": "query", "required": true, "type": "string"},
                    {"name": "timeSlotId", "in": "query", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/conflicts/teacher": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Report double bookings of a teacher at a slot",
                "parameters": [
                    {"name": "termId", "in": "query", "required": true, "type": "string"},
                    {"name": "teacherId", "in": "query", "required": true, "type": "string"},
                    {"name": "timeSlotId", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/conflicts/classroom": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Report double bookings of a classroom at a slot",
                "parameters": [
                    {"name": "termId", "in": "query", "required": true, "type": "string"},
                    {"name": "classroomId", "in": "query", "required": true, "type": "string"},
                    {"name": "timeSlotId", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/statistics/{termId}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Utilization and conflict metrics for a term's timetable",
                "parameters": [
                    {"name": "termId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/report/{termId}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Display-ready timetable rows for a term",
                "parameters": [
                    {"name": "termId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/report/{termId}/export": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue an asynchronous timetable export",
                "parameters": [
                    {"name": "termId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportReportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/report/jobs/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Get the status of an export job",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/exports/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a finished export via its signed token",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "AlgorithmConfig": {
            "type": "object",
            "properties": {
                "algorithm": {"type": "string", "enum": ["greedy"]},
                "maxIterations": {"type": "integer"},
                "neighborhoodSize": {"type": "integer"},
                "seed": {"type": "integer"},
                "conflictWeights": {"type": "object"},
                "preferences": {"type": "object"}
            }
        },
        "AssignmentPayload": {
            "type": "object",
            "properties": {
                "sectionId": {"type": "string"},
                "timeSlotId": {"type": "string"},
                "classroomId": {"type": "string"}
            },
            "required": ["sectionId", "timeSlotId", "classroomId"]
        },
        "AutoScheduleRequest": {
            "type": "object",
            "properties": {
                "termId": {"type": "string"},
                "config": {"$ref": "#/definitions/AlgorithmConfig"}
            },
            "required": ["termId"]
        },
        "ValidateScheduleRequest": {
            "type": "object",
            "properties": {
                "termId": {"type": "string"},
                "assignments": {"type": "array", "items": {"$ref": "#/definitions/AssignmentPayload"}}
            },
            "required": ["termId", "assignments"]
        },
        "OptimizeScheduleRequest": {
            "type": "object",
            "properties": {
                "termId": {"type": "string"},
                "assignments": {"type": "array", "items": {"$ref": "#/definitions/AssignmentPayload"}},
                "config": {"$ref": "#/definitions/AlgorithmConfig"}
            },
            "required": ["termId", "assignments"]
        },
        "CheckConflictsRequest": {
            "type": "object",
            "properties": {
                "termId": {"type": "string"},
                "candidate": {"$ref": "#/definitions/AssignmentPayload"},
                "existing": {"type": "array", "items": {"$ref": "#/definitions/AssignmentPayload"}}
            },
            "required": ["termId", "candidate"]
        },
        "BatchImportRequest": {
            "type": "object",
            "properties": {
                "termId": {"type": "string"},
                "assignments": {"type": "array", "items": {"$ref": "#/definitions/AssignmentPayload"}}
            },
            "required": ["termId", "assignments"]
        },
        "CopyScheduleRequest": {
            "type": "object",
            "properties": {
                "fromTermId": {"type": "string"},
                "toTermId": {"type": "string"},
                "force": {"type": "boolean"}
            },
            "required": ["fromTermId", "toTermId"]
        },
        "ExportReportRequest": {
            "type": "object",
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            },
            "required": ["format"]
        },
        "ScheduleResult": {
            "type": "object",
            "properties": {
                "proposalId": {"type": "string"},
                "termId": {"type": "string"},
                "success": {"type": "boolean"},
                "assignments": {"type": "array", "items": {"type": "object"}},
                "conflicts": {"type": "array", "items": {"type": "object"}},
                "unscheduledSectionIds": {"type": "array", "items": {"type": "string"}},
                "message": {"type": "string"},
                "stats": {"type": "object"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_items": {"type": "integer"},
                "total_pages": {"type": "integer"}
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
