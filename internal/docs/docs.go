// Package docs holds the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/api/main.go -o internal/docs
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
		"/auth/register": {
			"post": {
				"tags": [
					"auth"
				],
				"summary": "Register a new user",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "body",
						"name": "request",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handlers.RegisterRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/handlers.AuthResponse"
						}
					},
					"400": {
						"description": "Invalid input",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/auth/login": {
			"post": {
				"tags": [
					"auth"
				],
				"summary": "Login user",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "body",
						"name": "request",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handlers.LoginRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handlers.AuthResponse"
						}
					},
					"400": {
						"description": "Invalid input",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/profile": {
			"get": {
				"tags": [
					"user"
				],
				"summary": "Get user profile",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handlers.UserResponse"
						}
					},
					"400": {
						"description": "Invalid input",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/config": {
			"get": {
				"tags": [
					"config"
				],
				"summary": "Get budget configuration",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handlers.ConfigResponse"
						}
					},
					"400": {
						"description": "Invalid input",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			},
			"put": {
				"tags": [
					"config"
				],
				"summary": "Replace budget configuration",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"in": "body",
						"name": "request",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handlers.UpdateConfigRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handlers.ConfigResponse"
						}
					},
					"400": {
						"description": "Invalid input",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/config/income": {
			"put": {
				"tags": [
					"config"
				],
				"summary": "Set net income",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"in": "body",
						"name": "request",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handlers.SetIncomeRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handlers.ConfigResponse"
						}
					},
					"400": {
						"description": "Invalid input",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/config/categories": {
			"post": {
				"tags": [
					"config"
				],
				"summary": "Add a budget category",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"in": "body",
						"name": "request",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handlers.AddCategoryRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/handlers.ConfigResponse"
						}
					},
					"400": {
						"description": "Invalid input",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/config/categories/{name}": {
			"put": {
				"tags": [
					"config"
				],
				"summary": "Set a category limit",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"description": "Category name",
						"name": "name",
						"in": "path",
						"required": true
					},
					{
						"in": "body",
						"name": "request",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handlers.SetLimitRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handlers.ConfigResponse"
						}
					},
					"400": {
						"description": "Invalid input",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			},
			"delete": {
				"tags": [
					"config"
				],
				"summary": "Remove a budget category",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "string",
						"description": "Category name",
						"name": "name",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handlers.ConfigResponse"
						}
					},
					"400": {
						"description": "Invalid input",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/transactions": {
			"get": {
				"tags": [
					"transactions"
				],
				"summary": "List transactions",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "integer",
						"description": "Year",
						"name": "year",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "Month (1-12)",
						"name": "month",
						"in": "query"
					},
					{
						"type": "string",
						"description": "Category",
						"name": "category",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "Page number (default 1)",
						"name": "page",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "Items per page (default 50, max 500)",
						"name": "page_size",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Invalid input",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			},
			"post": {
				"tags": [
					"transactions"
				],
				"summary": "Record a transaction",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"in": "body",
						"name": "request",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handlers.CreateTransactionRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/handlers.TransactionResponse"
						}
					},
					"400": {
						"description": "Invalid input",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			},
			"put": {
				"tags": [
					"transactions"
				],
				"summary": "Replace all transactions",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"in": "body",
						"name": "request",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handlers.ReplaceTransactionsRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Invalid input",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/transactions/import": {
			"post": {
				"tags": [
					"transactions"
				],
				"summary": "Import transactions from CSV",
				"produces": [
					"application/json"
				],
				"consumes": [
					"multipart/form-data"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "file",
						"description": "CSV statement",
						"name": "file",
						"in": "formData",
						"required": true
					},
					{
						"type": "boolean",
						"description": "Classify rows without a category",
						"name": "classify",
						"in": "formData"
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/services.ImportResult"
						}
					},
					"400": {
						"description": "Invalid input",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/transactions/classify": {
			"post": {
				"tags": [
					"transactions"
				],
				"summary": "Preview a classification",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"in": "body",
						"name": "request",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handlers.ClassifyRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/ai.Classification"
						}
					},
					"400": {
						"description": "Invalid input",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/dashboard": {
			"get": {
				"tags": [
					"dashboard"
				],
				"summary": "Monthly dashboard",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"type": "integer",
						"description": "Year",
						"name": "year",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "Month (1-12)",
						"name": "month",
						"in": "query"
					},
					{
						"type": "number",
						"description": "Amount below which a purchase is an ant expense",
						"name": "ant_threshold",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/analytics.Report"
						}
					},
					"400": {
						"description": "Invalid input",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/assistant/ask": {
			"post": {
				"tags": [
					"assistant"
				],
				"summary": "Ask the financial assistant",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"parameters": [
					{
						"in": "body",
						"name": "request",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handlers.AskRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/services.Answer"
						}
					},
					"400": {
						"description": "Invalid input",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/pipeline/users/{username}/import": {
			"post": {
				"tags": [
					"pipeline"
				],
				"summary": "Pipeline import",
				"produces": [
					"application/json"
				],
				"consumes": [
					"multipart/form-data"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Pipeline API key",
						"name": "X-API-Key",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Target user",
						"name": "username",
						"in": "path",
						"required": true
					},
					{
						"type": "file",
						"description": "CSV statement",
						"name": "file",
						"in": "formData",
						"required": true
					},
					{
						"type": "boolean",
						"description": "Classify rows without a category",
						"name": "classify",
						"in": "formData"
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/services.ImportResult"
						}
					},
					"400": {
						"description": "Invalid input",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		}
	},
	"definitions": {
		"models.BudgetConfiguration": {
			"type": "object",
			"properties": {
				"net_income": {
					"type": "number"
				},
				"budgets": {
					"type": "object",
					"additionalProperties": {
						"type": "number"
					}
				}
			}
		},
		"models.Transaction": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"owner": {
					"type": "string"
				},
				"date": {
					"type": "string"
				},
				"concept": {
					"type": "string"
				},
				"category": {
					"type": "string"
				},
				"subcategory": {
					"type": "string"
				},
				"amount": {
					"type": "number"
				},
				"method": {
					"type": "string"
				}
			}
		},
		"handlers.ErrorDetail": {
			"type": "object",
			"properties": {
				"code": {
					"type": "string"
				},
				"message": {
					"type": "string"
				}
			}
		},
		"handlers.ErrorResponse": {
			"type": "object",
			"properties": {
				"error": {
					"$ref": "#/definitions/handlers.ErrorDetail"
				}
			}
		},
		"handlers.RegisterRequest": {
			"type": "object",
			"properties": {
				"username": {
					"type": "string"
				},
				"password": {
					"type": "string"
				},
				"config": {
					"$ref": "#/definitions/models.BudgetConfiguration"
				}
			},
			"required": [
				"username",
				"password"
			]
		},
		"handlers.LoginRequest": {
			"type": "object",
			"properties": {
				"username": {
					"type": "string"
				},
				"password": {
					"type": "string"
				}
			},
			"required": [
				"username",
				"password"
			]
		},
		"handlers.UserResponse": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"username": {
					"type": "string"
				},
				"config": {
					"$ref": "#/definitions/models.BudgetConfiguration"
				}
			}
		},
		"handlers.AuthResponse": {
			"type": "object",
			"properties": {
				"token": {
					"type": "string"
				},
				"user": {
					"$ref": "#/definitions/handlers.UserResponse"
				}
			}
		},
		"handlers.UpdateConfigRequest": {
			"type": "object",
			"properties": {
				"net_income": {
					"type": "number"
				},
				"budgets": {
					"type": "object",
					"additionalProperties": {
						"type": "number"
					}
				}
			},
			"required": [
				"net_income"
			]
		},
		"handlers.SetIncomeRequest": {
			"type": "object",
			"properties": {
				"net_income": {
					"type": "number"
				}
			},
			"required": [
				"net_income"
			]
		},
		"handlers.AddCategoryRequest": {
			"type": "object",
			"properties": {
				"name": {
					"type": "string"
				},
				"limit": {
					"type": "number"
				}
			},
			"required": [
				"name",
				"limit"
			]
		},
		"handlers.SetLimitRequest": {
			"type": "object",
			"properties": {
				"limit": {
					"type": "number"
				}
			},
			"required": [
				"limit"
			]
		},
		"handlers.ConfigResponse": {
			"type": "object",
			"properties": {
				"config": {
					"$ref": "#/definitions/models.BudgetConfiguration"
				},
				"categories": {
					"type": "array",
					"items": {
						"type": "string"
					}
				},
				"payment_methods": {
					"type": "array",
					"items": {
						"type": "string"
					}
				}
			}
		},
		"handlers.CreateTransactionRequest": {
			"type": "object",
			"properties": {
				"date": {
					"type": "string"
				},
				"concept": {
					"type": "string"
				},
				"category": {
					"type": "string"
				},
				"amount": {
					"type": "number"
				},
				"method": {
					"type": "string"
				}
			},
			"required": [
				"date",
				"concept",
				"amount"
			]
		},
		"handlers.TransactionInput": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"date": {
					"type": "string"
				},
				"concept": {
					"type": "string"
				},
				"category": {
					"type": "string"
				},
				"subcategory": {
					"type": "string"
				},
				"amount": {
					"type": "number"
				},
				"method": {
					"type": "string"
				}
			},
			"required": [
				"date",
				"concept",
				"amount"
			]
		},
		"handlers.ReplaceTransactionsRequest": {
			"type": "object",
			"required": [
				"transactions"
			],
			"properties": {
				"transactions": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/handlers.TransactionInput"
					}
				}
			}
		},
		"handlers.TransactionResponse": {
			"type": "object",
			"properties": {
				"transaction": {
					"$ref": "#/definitions/models.Transaction"
				}
			}
		},
		"handlers.ClassifyRequest": {
			"type": "object",
			"properties": {
				"concept": {
					"type": "string"
				}
			},
			"required": [
				"concept"
			]
		},
		"handlers.AskRequest": {
			"type": "object",
			"properties": {
				"question": {
					"type": "string"
				},
				"year": {
					"type": "integer"
				},
				"month": {
					"type": "integer"
				}
			},
			"required": [
				"question"
			]
		},
		"ai.Classification": {
			"type": "object",
			"properties": {
				"category": {
					"type": "string"
				},
				"subcategory": {
					"type": "string"
				}
			}
		},
		"services.ImportResult": {
			"type": "object",
			"properties": {
				"imported": {
					"type": "integer"
				},
				"classified": {
					"type": "integer"
				},
				"ids": {
					"type": "array",
					"items": {
						"type": "string"
					}
				}
			}
		},
		"services.Answer": {
			"type": "object",
			"properties": {
				"question": {
					"type": "string"
				},
				"answer": {
					"type": "string"
				},
				"period": {
					"type": "string"
				},
				"transactions": {
					"type": "integer"
				},
				"available": {
					"type": "boolean"
				}
			}
		},
		"analytics.Report": {
			"type": "object",
			"properties": {
				"period": {
					"type": "object",
					"properties": {
						"year": {
							"type": "integer"
						},
						"month": {
							"type": "integer"
						}
					}
				},
				"net_income": {
					"type": "number"
				},
				"budget": {
					"type": "object"
				},
				"disposable": {
					"type": "number"
				},
				"projection": {
					"type": "object"
				},
				"alert": {
					"type": "string"
				},
				"distribution": {
					"type": "array",
					"items": {
						"type": "object"
					}
				},
				"by_method": {
					"type": "array",
					"items": {
						"type": "object"
					}
				},
				"curve": {
					"type": "object"
				},
				"ant_expenses": {
					"type": "object"
				},
				"transactions": {
					"type": "integer"
				},
				"invalid": {
					"type": "integer"
				}
			}
		}
	},
	"securityDefinitions": {
		"BearerAuth": {
			"description": "Type \"Bearer\" followed by a space and JWT token.",
			"type": "apiKey",
			"name": "Authorization",
			"in": "header"
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Misa API",
	Description:      "Personal finance ledger with monthly budgets, spending analytics and an AI assistant.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
