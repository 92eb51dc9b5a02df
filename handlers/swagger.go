package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the bug API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(r gin.IRouter) {
	r.GET("/swagger/index.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerHTML))
	})

	r.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Bug Tracker API - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "bug-tracker", "version": "v1.0.0" },
  "components": {
    "schemas": {
      "BugInput": {
        "type": "object",
        "required": ["title", "description", "reportedBy"],
        "properties": {
          "title": { "type": "string", "maxLength": 100 },
          "description": { "type": "string" },
          "status": { "type": "string", "enum": ["open", "in-progress", "resolved"], "default": "open" },
          "severity": { "type": "string", "enum": ["low", "medium", "high", "critical"], "default": "medium" },
          "reportedBy": { "type": "string" }
        }
      },
      "Bug": {
        "allOf": [
          { "$ref": "#/components/schemas/BugInput" },
          { "type": "object", "properties": {
              "id": { "type": "string" },
              "createdAt": { "type": "string", "format": "date-time" },
              "updatedAt": { "type": "string", "format": "date-time" } } }
        ]
      },
      "ValidationErrors": { "type": "object", "properties": { "errors": { "type": "array", "items": { "type": "string" } } } },
      "Message": { "type": "object", "properties": { "message": { "type": "string" }, "error": { "type": "string" } } }
    },
    "responses": {
      "BadRequest": { "description": "validation failed", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/ValidationErrors" } } } },
      "NotFound": { "description": "Bug not found", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Message" } } } },
      "ServerError": { "description": "An error occurred on the server", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Message" } } } }
    },
    "parameters": {
      "BugID": { "name": "id", "in": "path", "required": true, "schema": { "type": "string" } }
    }
  },
  "paths": {
    "/api/bugs": {
      "get": {
        "summary": "List all bugs, newest first",
        "responses": {
          "200": { "description": "bugs", "content": { "application/json": { "schema": { "type": "array", "items": { "$ref": "#/components/schemas/Bug" } } } } },
          "500": { "$ref": "#/components/responses/ServerError" }
        }
      },
      "post": {
        "summary": "Report a bug",
        "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/BugInput" } } } },
        "responses": {
          "201": { "description": "created", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Bug" } } } },
          "400": { "$ref": "#/components/responses/BadRequest" },
          "500": { "$ref": "#/components/responses/ServerError" }
        }
      }
    },
    "/api/bugs/{id}": {
      "parameters": [ { "$ref": "#/components/parameters/BugID" } ],
      "get": {
        "summary": "Get a bug",
        "responses": {
          "200": { "description": "bug", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Bug" } } } },
          "404": { "$ref": "#/components/responses/NotFound" },
          "500": { "$ref": "#/components/responses/ServerError" }
        }
      },
      "put": {
        "summary": "Update a bug",
        "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/BugInput" } } } },
        "responses": {
          "200": { "description": "updated", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Bug" } } } },
          "400": { "$ref": "#/components/responses/BadRequest" },
          "404": { "$ref": "#/components/responses/NotFound" },
          "500": { "$ref": "#/components/responses/ServerError" }
        }
      },
      "delete": {
        "summary": "Delete a bug",
        "responses": {
          "200": { "description": "Bug deleted successfully", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Message" } } } },
          "404": { "$ref": "#/components/responses/NotFound" },
          "500": { "$ref": "#/components/responses/ServerError" }
        }
      }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "exposition" } } } }
  }
}`
