package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Gift Approval API",
        "description": "Gift request approval workflow with transactional bulk import, update and rollback",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [
        {"BearerAuth": []}
    ],
    "tags": [
        {"name": "Gifts", "description": "Single gift request lifecycle"},
        {"name": "Gift Batches", "description": "Bulk import, bulk update and rollback"}
    ],
    "paths": {
        "/gifts": {
            "get": {
                "tags": ["Gifts"],
                "summary": "List gift requests",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "description": "Comma separated workflow statuses"},
                    {"name": "batchId", "in": "query", "type": "integer"},
                    {"name": "memberLogin", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Gifts"],
                "summary": "Create a gift request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateGiftRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Permission denied", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/gifts/{id}": {
            "get": {
                "tags": ["Gifts"],
                "summary": "Get a gift request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/gifts/{id}/timeline": {
            "get": {
                "tags": ["Gifts"],
                "summary": "Status history of a gift request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/gifts/{id}/transitions": {
            "post": {
                "tags": ["Gifts"],
                "summary": "Run a workflow action on a gift request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Illegal transition or stale record", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Precondition failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/gift-batches": {
            "get": {
                "tags": ["Gift Batches"],
                "summary": "List batches",
                "parameters": [
                    {"name": "type", "in": "query", "type": "string", "enum": ["IMPORT", "UPDATE"]},
                    {"name": "tab", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/gift-batches/{id}": {
            "get": {
                "tags": ["Gift Batches"],
                "summary": "Get a batch with its rollback history",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/gift-batches/{id}/export": {
            "get": {
                "tags": ["Gift Batches"],
                "summary": "Download the requests of a batch",
                "produces": ["text/csv", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "xlsx", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        },
        "/gift-batches/import": {
            "post": {
                "tags": ["Gift Batches"],
                "summary": "Bulk create gift requests",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ImportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/gift-batches/update": {
            "post": {
                "tags": ["Gift Batches"],
                "summary": "Apply a tab's sheet to many gift requests",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkUpdateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/gift-batches/rollback": {
            "post": {
                "tags": ["Gift Batches"],
                "summary": "Reverse a completed batch",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RollbackRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Batch already rolled back", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateGiftRequest": {
            "type": "object",
            "required": ["memberLogin", "giftItem", "category"],
            "properties": {
                "memberLogin": {"type": "string"},
                "giftItem": {"type": "string"},
                "category": {"type": "string", "enum": ["Birthday", "Offline", "Online", "Festival", "Others"]},
                "rewardName": {"type": "string"},
                "costMyr": {"type": "number"},
                "costVnd": {"type": "number"},
                "remark": {"type": "string"}
            }
        },
        "TransitionPayload": {
            "type": "object",
            "properties": {
                "rejectionReason": {"type": "string"},
                "dispatcher": {"type": "string"},
                "trackingCode": {"type": "string"},
                "trackingStatus": {"type": "string"},
                "mktopsProof": {"type": "string"},
                "kamProof": {"type": "string"},
                "feedback": {"type": "string"},
                "auditRemark": {"type": "string"}
            }
        },
        "TransitionRequest": {
            "type": "object",
            "required": ["tab", "action"],
            "properties": {
                "tab": {"type": "string", "enum": ["pending", "processing", "kam-proof", "audit"]},
                "action": {"type": "string"},
                "payload": {"$ref": "#/definitions/TransitionPayload"}
            }
        },
        "ImportRequest": {
            "type": "object",
            "properties": {
                "batchName": {"type": "string"},
                "rows": {"type": "array", "items": {"$ref": "#/definitions/CreateGiftRequest"}}
            }
        },
        "BulkUpdateRow": {
            "type": "object",
            "required": ["giftId", "memberLogin", "merchantName", "currency"],
            "properties": {
                "giftId": {"type": "integer"},
                "memberLogin": {"type": "string"},
                "merchantName": {"type": "string"},
                "currency": {"type": "string"},
                "decision": {"type": "string"},
                "dispatcher": {"type": "string"},
                "trackingCode": {"type": "string"},
                "trackingStatus": {"type": "string"},
                "mktopsProof": {"type": "string"},
                "kamProof": {"type": "string"},
                "feedback": {"type": "string"},
                "auditRemark": {"type": "string"}
            }
        },
        "BulkUpdateRequest": {
            "type": "object",
            "required": ["tab", "rows"],
            "properties": {
                "tab": {"type": "string", "enum": ["processing", "kam-proof", "audit"]},
                "rows": {"type": "array", "items": {"$ref": "#/definitions/BulkUpdateRow"}}
            }
        },
        "RollbackRequest": {
            "type": "object",
            "required": ["tab", "reason"],
            "properties": {
                "tab": {"type": "string"},
                "transactionRef": {"type": "string"},
                "batchId": {"type": "integer"},
                "reason": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "limit": {"type": "integer"},
                "offset": {"type": "integer"},
                "count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
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
