// Package api serves the deployment agent's HTTP control surface:
// POST /deploy, GET /status and the health and metrics endpoints.
package api
