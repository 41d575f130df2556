package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Engage API",
        "description": "Student engagement backend: ratings, rankings, points, rewards, competitions and messaging.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Login, refresh and session management"},
        {"name": "Groups", "description": "Groups and membership"},
        {"name": "Ratings", "description": "Rating recompute, ranking and leaderboards"},
        {"name": "Homework", "description": "Assignments, submissions and grading"},
        {"name": "Attendance", "description": "Class session attendance sheets"},
        {"name": "Participation", "description": "Teacher-observed class participation"},
        {"name": "Points", "description": "Point ledger and bonus tasks"},
        {"name": "Rewards", "description": "Reward catalog and the claim gate"},
        {"name": "Competitions", "description": "Competition lifecycle and prizes"},
        {"name": "Messages", "description": "Direct messaging"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Login with email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange a refresh token for a new token pair",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Get the authenticated user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/groups": {
            "get": {
                "tags": ["Groups"],
                "summary": "List groups",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "teacher_id", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Groups"],
                "summary": "Create a group",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateGroupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/groups/{groupId}/members": {
            "get": {
                "tags": ["Groups"],
                "summary": "List group members",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "groupId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Groups"],
                "summary": "Enroll a student; a zeroed rating row is bootstrapped",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "groupId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddMemberRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/groups/{groupId}/leaderboard": {
            "get": {
                "tags": ["Ratings"],
                "summary": "Ranked leaderboard for a group, cache-first",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "groupId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/groups/{groupId}/resolve": {
            "post": {
                "tags": ["Ratings"],
                "summary": "Re-rank every rating in the group",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "groupId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/groups/{groupId}/ratings/{studentId}": {
            "get": {
                "tags": ["Ratings"],
                "summary": "A student's rating with monthly history",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "groupId", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/groups/{groupId}/snapshots": {
            "post": {
                "tags": ["Ratings"],
                "summary": "Close a monthly rating period",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "groupId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SnapshotRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/ratings/recompute": {
            "post": {
                "tags": ["Ratings"],
                "summary": "Recompute a student's rating from fact records",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecomputeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Retry bound exceeded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/homeworks": {
            "post": {
                "tags": ["Homework"],
                "summary": "Create an assignment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateHomeworkRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/homeworks/{id}/submissions": {
            "post": {
                "tags": ["Homework"],
                "summary": "Submit homework; past-deadline submissions are flagged late",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/submissions/{id}/grade": {
            "post": {
                "tags": ["Homework"],
                "summary": "Grade a submission; the student's rating is recomputed and a group re-rank queued",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GradeSubmissionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List attendance records",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Attendance"],
                "summary": "Record an attendance sheet for a session",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/participation": {
            "get": {
                "tags": ["Participation"],
                "summary": "List participation records",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Participation"],
                "summary": "Record a participation event",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/points/{userId}": {
            "get": {
                "tags": ["Points"],
                "summary": "Point balance, completions and achievements",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "userId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/points/credit": {
            "post": {
                "tags": ["Points"],
                "summary": "Credit points to a student",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/points/debit": {
            "post": {
                "tags": ["Points"],
                "summary": "Debit points; fails when the balance would go negative",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Insufficient points", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bonus-tasks": {
            "get": {
                "tags": ["Points"],
                "summary": "List bonus tasks",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Points"],
                "summary": "Create a bonus task",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bonus-tasks/{id}/complete": {
            "post": {
                "tags": ["Points"],
                "summary": "Complete a bonus task once; credits points and may unlock achievements",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already completed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rewards": {
            "get": {
                "tags": ["Rewards"],
                "summary": "List rewards in unlock order",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Rewards"],
                "summary": "Create a reward",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rewards/{id}/claim": {
            "post": {
                "tags": ["Rewards"],
                "summary": "Claim a reward; preconditions are checked in a fixed order",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Insufficient points or locked chain", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/competitions": {
            "get": {
                "tags": ["Competitions"],
                "summary": "List competitions",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["UPCOMING", "ACTIVE", "FINISHED"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Competitions"],
                "summary": "Create a competition",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/competitions/{id}/register": {
            "post": {
                "tags": ["Competitions"],
                "summary": "Register the authenticated student",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/competitions/{id}/winners": {
            "post": {
                "tags": ["Competitions"],
                "summary": "Assign winners, credit prizes and close the competition",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/messages": {
            "post": {
                "tags": ["Messages"],
                "summary": "Send a direct message",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/conversations/{peerId}": {
            "get": {
                "tags": ["Messages"],
                "summary": "Conversation with another user, oldest first",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "peerId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "CreateGroupRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "teacher_id": {"type": "string"}
            },
            "required": ["name"]
        },
        "AddMemberRequest": {
            "type": "object",
            "properties": {
                "user_id": {"type": "string"}
            },
            "required": ["user_id"]
        },
        "RecomputeRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "group_id": {"type": "string"}
            },
            "required": ["student_id", "group_id"]
        },
        "SnapshotRequest": {
            "type": "object",
            "properties": {
                "year": {"type": "integer"},
                "month": {"type": "integer"}
            },
            "required": ["year", "month"]
        },
        "CreateHomeworkRequest": {
            "type": "object",
            "properties": {
                "group_id": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "deadline": {"type": "string"},
                "max_grade": {"type": "number"}
            },
            "required": ["group_id", "title", "max_grade"]
        },
        "GradeSubmissionRequest": {
            "type": "object",
            "properties": {
                "grade": {"type": "number"},
                "feedback": {"type": "string"}
            },
            "required": ["grade"]
        },
        "Rating": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "student_id": {"type": "string"},
                "group_id": {"type": "string"},
                "grades": {"type": "number"},
                "attendance": {"type": "number"},
                "homework_completion": {"type": "number"},
                "class_participation": {"type": "number"},
                "total_score": {"type": "number"},
                "rank_in_group": {"type": "integer"},
                "version": {"type": "integer"}
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
