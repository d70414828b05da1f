//go:build swagger

// Package apidocs registers the OpenAPI document served at /swagger/doc.json.
package apidocs

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
        "/chat": {
            "post": {
                "description": "Appends the message to the session's conversation and streams the reply as server-sent events.",
                "consumes": ["application/json"],
                "produces": ["text/event-stream"],
                "tags": ["chat"],
                "summary": "Stream a chat reply",
                "parameters": [
                    {
                        "description": "User message",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/types.ChatRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "one frame per data: line", "schema": {"$ref": "#/definitions/types.StreamFrame"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "description": "Reports whether the engine is loaded, the device it runs on and accelerator memory.",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Engine health",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HealthResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.HealthResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.ChatRequest": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "What is a good warm-up before squats?"}
            }
        },
        "types.StreamFrame": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "streaming"},
                "chunk": {"type": "string", "example": "Hel"},
                "full_response": {"type": "string", "example": "Hello!"},
                "message": {"type": "string", "example": "Generation aborted by client"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "error"},
                "message": {"type": "string", "example": "Missing message in request body"}
            }
        },
        "types.GPUMemory": {
            "type": "object",
            "properties": {
                "allocated_mb": {"type": "number", "example": 2048.5},
                "reserved_mb": {"type": "number", "example": 2304}
            }
        },
        "types.HealthData": {
            "type": "object",
            "properties": {
                "is_loaded": {"type": "boolean", "example": true},
                "device": {"type": "string", "example": "cuda"},
                "model_name": {"type": "string", "example": "gemma-2-2b-it"},
                "gpu_available": {"type": "boolean", "example": true},
                "gpu_memory": {"$ref": "#/definitions/types.GPUMemory"}
            }
        },
        "types.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "success"},
                "data": {"$ref": "#/definitions/types.HealthData"},
                "message": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "chatd API",
	Description:      "Streaming chat over a lazily loaded local language model.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
