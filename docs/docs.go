// Package docs provides Swagger documentation for the car rental booking API.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "license": {"name": "MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "schemes": {{ marshal .Schemes }},
    "consumes": ["application/json"],
    "produces": ["application/json"],
    "securityDefinitions": {
        "ApiKey": {"type": "apiKey", "in": "header", "name": "X-API-Key"}
    },
    "security": [{"ApiKey": []}],
    "paths": {
        "/sessions": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Start a booking session",
                "description": "Creates a session on step 1 and loads pickup locations",
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/Session"}}}
            }
        },
        "/sessions/{id}": {
            "parameters": [{"$ref": "#/parameters/SessionID"}],
            "get": {
                "tags": ["Sessions"],
                "summary": "Get session state with validation of the current step",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Session"}},
                    "404": {"$ref": "#/responses/Problem"}
                }
            },
            "delete": {
                "tags": ["Sessions"],
                "summary": "Close a session and cancel its draft order",
                "responses": {"204": {"description": "Closed"}, "404": {"$ref": "#/responses/Problem"}}
            }
        },
        "/sessions/{id}/actions": {
            "parameters": [{"$ref": "#/parameters/SessionID"}],
            "post": {
                "tags": ["Sessions"],
                "summary": "Dispatch a client action",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/ActionRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Session"}},
                    "400": {"$ref": "#/responses/Problem"},
                    "403": {"$ref": "#/responses/Problem"}
                }
            }
        },
        "/sessions/{id}/search": {
            "parameters": [{"$ref": "#/parameters/SessionID"}],
            "post": {
                "tags": ["Booking"],
                "summary": "Search available vehicles",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/SearchInput"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Session"}}}
            }
        },
        "/sessions/{id}/vehicle": {
            "parameters": [{"$ref": "#/parameters/SessionID"}],
            "post": {
                "tags": ["Booking"],
                "summary": "Select a vehicle and create a draft order",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Session"}},
                    "404": {"$ref": "#/responses/Problem"},
                    "409": {"$ref": "#/responses/Problem"}
                }
            }
        },
        "/sessions/{id}/drivers/submit": {
            "parameters": [{"$ref": "#/parameters/SessionID"}],
            "post": {
                "tags": ["Drivers"],
                "summary": "Validate drivers and price insurance",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Session"}},
                    "409": {"$ref": "#/responses/Problem"},
                    "422": {"$ref": "#/responses/Problem"}
                }
            }
        },
        "/sessions/{id}/drivers/{index}/photos": {
            "parameters": [{"$ref": "#/parameters/SessionID"}, {"in": "path", "name": "index", "type": "integer", "required": true}],
            "post": {
                "tags": ["Drivers"],
                "summary": "Upload driving licence photos",
                "consumes": ["multipart/form-data"],
                "parameters": [{"in": "formData", "name": "files", "type": "file", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Session"}}}
            }
        },
        "/sessions/{id}/insurance": {
            "parameters": [{"$ref": "#/parameters/SessionID"}],
            "post": {
                "tags": ["Insurance"],
                "summary": "Select an insurance option",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Session"}}}
            }
        },
        "/sessions/{id}/confirm": {
            "parameters": [{"$ref": "#/parameters/SessionID"}],
            "post": {
                "tags": ["Booking"],
                "summary": "Attach insurance and confirm the order",
                "description": "Card payments end with a payment redirect, cash payments with a confirmed order",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Session"}}}
            }
        },
        "/insurance/catalog": {
            "get": {
                "tags": ["Insurance"],
                "summary": "List insurance options",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/insurance/quote": {
            "post": {
                "tags": ["Insurance"],
                "summary": "Price insurance for a driver and rental window",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/QuoteInput"}}],
                "responses": {"200": {"description": "OK"}, "400": {"$ref": "#/responses/Problem"}}
            }
        },
        "/countries": {
            "get": {
                "tags": ["Directory"],
                "summary": "List countries",
                "parameters": [{"in": "query", "name": "lang", "type": "string", "default": "EN"}],
                "responses": {"200": {"description": "OK"}, "502": {"$ref": "#/responses/Problem"}}
            }
        }
    },
    "parameters": {
        "SessionID": {"in": "path", "name": "id", "type": "string", "required": true}
    },
    "responses": {
        "Problem": {"description": "RFC 7807 problem", "schema": {"$ref": "#/definitions/Problem"}}
    },
    "definitions": {
        "Session": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "state": {"type": "object"},
                "validation": {"type": "object"}
            }
        },
        "ActionRequest": {
            "type": "object",
            "required": ["type"],
            "properties": {
                "type": {"type": "string", "example": "SET_TERMS_ACCEPTED"},
                "payload": {"type": "object"}
            }
        },
        "SearchInput": {
            "type": "object",
            "properties": {
                "date_from": {"type": "string", "example": "2030-06-01"},
                "time_from": {"type": "string", "example": "10:00"},
                "date_to": {"type": "string", "example": "2030-06-05"},
                "time_to": {"type": "string", "example": "10:00"},
                "pickup_location": {"type": "string"},
                "return_location": {"type": "string"}
            }
        },
        "QuoteInput": {
            "type": "object",
            "required": ["birthday", "license_from", "license_to", "pickup_at", "return_at"],
            "properties": {
                "birthday": {"type": "string", "example": "1990-04-12"},
                "license_from": {"type": "string", "example": "2010-06-01"},
                "license_to": {"type": "string", "example": "2032-06-01"},
                "country": {"type": "string", "example": "CH"},
                "pickup_at": {"type": "string", "example": "2030-06-01 10:00:00"},
                "return_at": {"type": "string", "example": "2030-06-05 10:00:00"}
            }
        },
        "Problem": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "title": {"type": "string"},
                "status": {"type": "integer"},
                "detail": {"type": "string"},
                "errors": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        }
    },
    "tags": [
        {"name": "Sessions", "description": "Booking session lifecycle"},
        {"name": "Booking", "description": "Search, vehicle selection and confirmation"},
        {"name": "Drivers", "description": "Driver data and licence photos"},
        {"name": "Insurance", "description": "Eligibility and premium calculation"},
        {"name": "Directory", "description": "Reference data from the booking API"}
    ]
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Car Rental Booking API",
	Description:      "Booking sessions for car rental with insurance eligibility and pricing",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
