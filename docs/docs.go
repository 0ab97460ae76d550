// Package docs registers the OpenAPI document served by the swagger UI.
// Regenerate with `make swagger-gen` after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {"name": "sumd maintainers"},
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/summarize": {
            "post": {
                "description": "Returns a 10 to 15 word summary with latency and energy of the run.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["summarize"],
                "summary": "Summarize text",
                "parameters": [{"description": "Text and profile", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.SummarizeRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.SummarizeResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/compare": {
            "post": {
                "description": "Summarizes the same text with the baseline and then the optimized profile.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["summarize"],
                "summary": "Compare profiles",
                "parameters": [{"description": "Text", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.CompareRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.CompareResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/profiles": {
            "get": {
                "produces": ["application/json"],
                "tags": ["profiles"],
                "summary": "List profiles",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ProfilesResponse"}}}
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Service status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
            }
        }
    },
    "definitions": {
        "types.SummarizeRequest": {
            "type": "object",
            "properties": {
                "text": {"type": "string", "example": "The ocean covers more than two thirds of the Earth and regulates its climate."},
                "textToSum": {"type": "string"},
                "optimized": {"type": "boolean", "example": false, "default": false},
                "profile": {"type": "string", "example": "optimized"}
            }
        },
        "types.SummarizeResponse": {
            "type": "object",
            "properties": {
                "summary": {"type": "string", "example": "The ocean covers most of the planet and plays a key role regulating climate"},
                "word_count": {"type": "integer", "example": 14},
                "latency_ms": {"type": "number", "example": 412.5},
                "energy_wh": {"type": "number", "example": 0.0031},
                "profile": {"type": "string", "example": "optimized"},
                "device": {"type": "string", "example": "cpu"},
                "optimized": {"type": "boolean", "example": true},
                "fallback": {"type": "boolean", "example": false}
            }
        },
        "types.CompareRequest": {
            "type": "object",
            "properties": {
                "text": {"type": "string"},
                "textToSum": {"type": "string"}
            }
        },
        "types.CompareResponse": {
            "type": "object",
            "properties": {
                "run_id": {"type": "string", "example": "9b2f5c7e-3f0a-4a55-8a1b-1d2c3e4f5a6b"},
                "baseline": {"$ref": "#/definitions/types.SummarizeResponse"},
                "optimized": {"$ref": "#/definitions/types.SummarizeResponse"},
                "latency_reduction_pct": {"type": "number", "example": 63.2},
                "energy_reduction_pct": {"type": "number", "example": 58.9}
            }
        },
        "types.ProfileInfo": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "optimized"},
                "precision": {"type": "string", "example": "int8-dynamic"},
                "device": {"type": "string", "example": "cuda-if-available"},
                "do_sample": {"type": "boolean"},
                "num_beams": {"type": "integer", "example": 2},
                "temperature": {"type": "number"},
                "top_p": {"type": "number"},
                "repetition_penalty": {"type": "number", "example": 1.3},
                "no_repeat_ngram_size": {"type": "integer", "example": 3},
                "min_new_tokens": {"type": "integer", "example": 12},
                "max_new_tokens": {"type": "integer", "example": 40},
                "truncation": {"type": "string", "example": "head-tail"},
                "max_input_tokens": {"type": "integer", "example": 768}
            }
        },
        "types.ProfilesResponse": {
            "type": "object",
            "properties": {
                "profiles": {"type": "array", "items": {"$ref": "#/definitions/types.ProfileInfo"}}
            }
        },
        "types.ProfileStatus": {
            "type": "object",
            "properties": {
                "profile": {"type": "string", "example": "optimized"},
                "state": {"type": "string", "example": "ready"},
                "device": {"type": "string", "example": "cuda"},
                "queue_len": {"type": "integer", "example": 0},
                "inflight": {"type": "integer", "example": 1},
                "max_queue_depth": {"type": "integer", "example": 32},
                "last_used_unix": {"type": "integer", "example": 1700000000},
                "requests": {"type": "integer", "example": 12},
                "fallbacks": {"type": "integer", "example": 1},
                "error": {"type": "string"}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "state": {"type": "string", "example": "ready"},
                "profiles": {"type": "array", "items": {"$ref": "#/definitions/types.ProfileStatus"}},
                "engine": {"type": "string", "example": "openai"},
                "meter": {"type": "string", "example": "rapl"},
                "weights_path": {"type": "string"},
                "reconstructions": {"type": "integer", "example": 1},
                "last_error": {"type": "string"},
                "uptime_seconds": {"type": "integer", "example": 3600},
                "server_time_unix": {"type": "integer", "example": 1700000000}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "text must not be empty"},
                "code": {"type": "integer", "example": 400}
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
	Title:            "sumd API",
	Description:      "HTTP API for short text summarization with latency and energy measurement.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
