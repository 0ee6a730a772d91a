package api

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}}
            }
        },
        "/regions": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["regions"],
                "summary": "List mapped regions",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/api.RegionInfo"}}}}
            }
        },
        "/regions/{name}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["regions"],
                "summary": "Decode a region",
                "parameters": [{"type": "string", "description": "Region name", "name": "name", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.RegionRecord"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            },
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["regions"],
                "summary": "Write a full record over a region",
                "parameters": [
                    {"type": "string", "description": "Region name", "name": "name", "in": "path", "required": true},
                    {"description": "Field values", "name": "body", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.RegionRecord"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            },
            "patch": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["regions"],
                "summary": "Change some fields of a region",
                "parameters": [
                    {"type": "string", "description": "Region name", "name": "name", "in": "path", "required": true},
                    {"description": "Field values", "name": "body", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.RegionRecord"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/regions/{name}/raw": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/octet-stream"],
                "tags": ["regions"],
                "summary": "Read the raw bytes of a region",
                "parameters": [{"type": "string", "description": "Region name", "name": "name", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "string", "format": "binary"}}}
            }
        },
        "/regions/{name}/history": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "List journaled states of a region, newest first",
                "parameters": [
                    {"type": "string", "description": "Region name", "name": "name", "in": "path", "required": true},
                    {"type": "integer", "description": "Maximum entries", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/api.HistoryEntry"}}}}
            }
        },
        "/regions/{name}/restore/{id}": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "Restore a journaled state",
                "parameters": [
                    {"type": "string", "description": "Region name", "name": "name", "in": "path", "required": true},
                    {"type": "string", "description": "Entry id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.RegionRecord"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/layouts": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["layouts"],
                "summary": "List layouts",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}}
            }
        },
        "/layouts/{layout}/decode": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/octet-stream"],
                "produces": ["application/json"],
                "tags": ["layouts"],
                "summary": "Decode a buffer with a layout",
                "parameters": [
                    {"type": "string", "description": "Layout name", "name": "layout", "in": "path", "required": true},
                    {"description": "Raw record bytes", "name": "body", "in": "body", "required": true, "schema": {"type": "string", "format": "binary"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/layouts/{layout}/encode": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/octet-stream"],
                "tags": ["layouts"],
                "summary": "Encode a record with a layout",
                "parameters": [
                    {"type": "string", "description": "Layout name", "name": "layout", "in": "path", "required": true},
                    {"description": "Field values", "name": "body", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "string", "format": "binary"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {},
                "error": {"type": "string"},
                "kind": {"type": "string"}
            }
        },
        "api.RegionInfo": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "layout": {"type": "string"},
                "base_address": {"type": "integer"},
                "size": {"type": "integer"},
                "coverage": {"type": "number"}
            }
        },
        "api.RegionRecord": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "layout": {"type": "string"},
                "base_address": {"type": "integer"},
                "size": {"type": "integer"},
                "coverage": {"type": "number"},
                "fields": {"type": "object"}
            }
        },
        "api.HistoryEntry": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "time": {"type": "string"},
                "size": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "X-API-Key", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "savelayout REST API",
	Description:      "Read and edit Dragon Quest III save-state records through their fixed layouts.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
