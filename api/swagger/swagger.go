package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Crossmark Classification API",
        "description": "Cross-national security classification conversion service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Schemas", "description": "National classification schema registry"},
        {"name": "Conversions", "description": "Classification marking conversion"},
        {"name": "Data Objects", "description": "Classified data object catalog"},
        {"name": "Audit", "description": "Audit trail queries and compliance exports"},
        {"name": "Nations", "description": "Nations and issuing authorities"}
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
        "/schemas": {
            "post": {
                "tags": ["Schemas"],
                "summary": "Register a classification schema version",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Incomplete mapping"},
                    "409": {"description": "Duplicate version"}
                }
            },
            "get": {
                "tags": ["Schemas"],
                "summary": "List registered schemas",
                "parameters": [
                    {"name": "nation_code", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schemas/{nation_code}/active": {
            "get": {
                "tags": ["Schemas"],
                "summary": "Resolve the active schema for a nation",
                "parameters": [
                    {"name": "nation_code", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "No usable schema"}
                }
            }
        },
        "/schemas/{nation_code}/versions/{version}": {
            "get": {
                "tags": ["Schemas"],
                "summary": "Fetch a specific schema version",
                "parameters": [
                    {"name": "nation_code", "in": "path", "required": true, "type": "string"},
                    {"name": "version", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/schemas/{id}/expire": {
            "post": {
                "tags": ["Schemas"],
                "summary": "Expire a schema version",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/conversions": {
            "post": {
                "tags": ["Conversions"],
                "summary": "Convert a classification marking for target nations",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unknown marking or duplicate target"},
                    "422": {"description": "Source schema unavailable"}
                }
            },
            "get": {
                "tags": ["Conversions"],
                "summary": "List conversion requests",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/conversions/{id}": {
            "get": {
                "tags": ["Conversions"],
                "summary": "Fetch a conversion request with its response",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/data-objects": {
            "post": {
                "tags": ["Data Objects"],
                "summary": "Create a data object",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Data Objects"],
                "summary": "List data objects owned by the caller",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audit": {
            "get": {
                "tags": ["Audit"],
                "summary": "Query the audit trail",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audit/export/csv": {
            "get": {
                "tags": ["Audit"],
                "summary": "Export matching audit entries as CSV",
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/audit/export/pdf": {
            "get": {
                "tags": ["Audit"],
                "summary": "Export matching audit entries as a classified PDF report",
                "produces": ["application/pdf"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/nations": {
            "post": {
                "tags": ["Nations"],
                "summary": "Register a nation",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate code"}
                }
            },
            "get": {
                "tags": ["Nations"],
                "summary": "List nations",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
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
