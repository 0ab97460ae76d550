package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           sumd API
// @version         1.0
// @description     HTTP API for short text summarization with latency and energy measurement.
//
// @contact.name   sumd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
