// Package docs registers the OpenAPI description of the console API with
// swag so gin-swagger can serve it. Regenerate with `swag init` after
// changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/{kind}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["List"],
                "summary": "List snapshot",
                "operationId": "getList",
                "parameters": [
                    {"enum": ["articles", "advertisements", "tours"], "type": "string", "name": "kind", "in": "path", "required": true},
                    {"type": "string", "name": "If-None-Match", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/store.ListView"}},
                    "304": {"description": "Not Modified"}
                }
            }
        },
        "/{kind}/fetch": {
            "post": {
                "produces": ["application/json"],
                "tags": ["List"],
                "summary": "Load the current list query",
                "operationId": "fetchList",
                "parameters": [
                    {"enum": ["articles", "advertisements", "tours"], "type": "string", "name": "kind", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/store.ListView"}},
                    "502": {"description": "Backend error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "504": {"description": "Backend timeout", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/{kind}/filters": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["List"],
                "summary": "Merge list filters",
                "operationId": "setFilters",
                "parameters": [
                    {"enum": ["articles", "advertisements", "tours"], "type": "string", "name": "kind", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.FilterPatch"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/store.ListView"}},
                    "400": {"description": "Unknown filter", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/{kind}/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Detail"],
                "summary": "Entity detail",
                "operationId": "getDetail",
                "parameters": [
                    {"enum": ["articles", "advertisements", "tours"], "type": "string", "name": "kind", "in": "path", "required": true},
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "boolean", "name": "refresh", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/store.DetailView"}},
                    "404": {"description": "Entity not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Edit"],
                "summary": "Save an edit form",
                "operationId": "submitEdit",
                "parameters": [
                    {"enum": ["articles", "advertisements", "tours"], "type": "string", "name": "kind", "in": "path", "required": true},
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SubmitEditResponse"}},
                    "400": {"description": "Field not editable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/{kind}/{id}/actions/{action}": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Actions"],
                "summary": "Run an admin action",
                "operationId": "runAction",
                "parameters": [
                    {"enum": ["articles", "advertisements", "tours"], "type": "string", "name": "kind", "in": "path", "required": true},
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"enum": ["approve", "reject", "pause", "resume", "delete", "restore"], "type": "string", "name": "action", "in": "path", "required": true},
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"name": "body", "in": "body", "schema": {"$ref": "#/definitions/handlers.RunActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.RunActionResponse"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Not selected or rejected by backend", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/{kind}/{id}/history": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Actions"],
                "summary": "Action journal of an entity",
                "operationId": "getHistory",
                "parameters": [
                    {"enum": ["articles", "advertisements", "tours"], "type": "string", "name": "kind", "in": "path", "required": true},
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.HistoryResponse"}},
                    "304": {"description": "Not Modified"}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "handlers.RunActionRequest": {
            "type": "object",
            "properties": {"reason": {"type": "string"}}
        },
        "handlers.RunActionResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "action": {"type": "string"},
                "replayed": {"type": "boolean"},
                "record": {"type": "object"},
                "detail": {"$ref": "#/definitions/store.DetailView"}
            }
        },
        "handlers.SubmitEditResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "patch": {"type": "object"},
                "changed": {"type": "boolean"},
                "detail": {"$ref": "#/definitions/store.DetailView"}
            }
        },
        "handlers.HistoryResponse": {
            "type": "object",
            "properties": {
                "records": {"type": "array", "items": {"type": "object"}},
                "pagination": {"type": "object"}
            }
        },
        "domain.FilterPatch": {
            "type": "object",
            "properties": {
                "search": {"type": "string"},
                "sets": {"type": "object", "additionalProperties": {"type": "array", "items": {"type": "string"}}}
            }
        },
        "store.ListView": {
            "type": "object",
            "properties": {
                "kind": {"type": "string"},
                "items": {"type": "array", "items": {"type": "object"}},
                "filters": {"type": "object"},
                "page": {"type": "integer"},
                "limit": {"type": "integer"},
                "total": {"type": "integer"},
                "totalPages": {"type": "integer"},
                "loading": {"type": "boolean"},
                "error": {"type": "string"},
                "loaded": {"type": "boolean"},
                "selected": {"type": "array", "items": {"type": "string"}},
                "version": {"type": "integer"}
            }
        },
        "store.DetailView": {
            "type": "object",
            "properties": {
                "kind": {"type": "string"},
                "id": {"type": "string"},
                "entity": {"type": "object"},
                "loading": {"type": "boolean"},
                "error": {"type": "string"},
                "lastFetchedAt": {"type": "string"},
                "selected": {"type": "boolean"},
                "actions": {"type": "object"},
                "editing": {"type": "boolean"},
                "dirty": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Moderation Console API",
	Description:      "Entity cache and sync layer for articles, advertisements and tours.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
