package main

// General API documentation for swaggo. Regenerate with `swag init -g cmd/chatd/docs.go -o internal/apidocs`.
//
// @title           chatd API
// @version         1.0
// @description     Streaming chat over Server-Sent Events backed by a lazily loaded local language model.
//
// @contact.name   chatd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
