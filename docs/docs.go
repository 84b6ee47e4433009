// Package docs holds the generated Swagger 2.0 spec consumed by
// internal/handler/swagger.go's OpenAPI 3.0 conversion, in the shape
// `swag init` produces (SPEC_FULL.md §3, swaggo/swag row).
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Fortuna Forecast API",
        "description": "Projects a cash-flow forecast from transaction history, scheduled events, and an opening balance.",
        "version": "1.0"
    },
    "basePath": "/api/v1",
    "paths": {
        "/forecast": {
            "post": {
                "summary": "Run a cash-flow forecast",
                "parameters": [
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ForecastRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "forecast result",
                        "schema": {
                            "$ref": "#/definitions/ForecastResult"
                        }
                    }
                }
            }
        },
        "/import/statement": {
            "post": {
                "summary": "Parse and optionally merge a bank or credit-card statement export",
                "responses": {
                    "200": {
                        "description": "parsed transactions"
                    }
                }
            }
        },
        "/ledgers": {
            "get": {
                "summary": "List saved ledgers",
                "responses": {
                    "200": {
                        "description": "ledgers"
                    }
                }
            },
            "post": {
                "summary": "Save a named ledger snapshot",
                "responses": {
                    "201": {
                        "description": "created ledger"
                    }
                }
            }
        },
        "/ledgers/{id}": {
            "get": {
                "summary": "Load a saved ledger by ID",
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "ledger"
                    },
                    "404": {
                        "description": "not found"
                    }
                }
            }
        }
    },
    "definitions": {
        "ForecastRequest": {
            "type": "object",
            "properties": {
                "ledger_id": {
                    "type": "string"
                },
                "opening_balance": {
                    "type": "string"
                },
                "horizon_days": {
                    "type": "integer"
                },
                "method": {
                    "type": "string"
                }
            }
        },
        "ForecastResult": {
            "type": "object"
        }
    }
}`

// SwaggerInfo holds the exported Swagger spec, the shape swag init
// generates for embedding in cmd/api.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Fortuna Forecast API",
	Description:      "Projects a cash-flow forecast from transaction history, scheduled events, and an opening balance.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
