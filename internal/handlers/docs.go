package handlers

import (
	"encoding/json"
	"net/http"
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the Solar Registry API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	locationParams := []map[string]interface{}{
		{
			"name":        "latitude",
			"in":          "query",
			"description": "Encoded latitude in unsigned microdegrees",
			"required":    true,
			"schema":      map[string]string{"type": "integer", "format": "uint64"},
		},
		{
			"name":        "longitude",
			"in":          "query",
			"description": "Encoded longitude in unsigned microdegrees",
			"required":    true,
			"schema":      map[string]string{"type": "integer", "format": "uint64"},
		},
	}

	ownerParam := map[string]interface{}{
		"name":        "owner",
		"in":          "path",
		"description": "Registry owner identity",
		"required":    true,
		"schema":      map[string]string{"type": "string"},
	}

	authHeaders := []map[string]interface{}{
		{
			"name":        "X-Registry-Owner",
			"in":          "header",
			"description": "Owner identity submitting the write",
			"required":    true,
			"schema":      map[string]string{"type": "string"},
		},
		{
			"name":        "X-API-Key",
			"in":          "header",
			"description": "Owner credential, verified against the configured hash",
			"required":    true,
			"schema":      map[string]string{"type": "string"},
		},
	}

	measurementSchema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"latitude":          map[string]string{"type": "integer", "format": "uint64"},
			"longitude":         map[string]string{"type": "integer", "format": "uint64"},
			"latitude_degrees":  map[string]string{"type": "integer", "format": "uint64"},
			"longitude_degrees": map[string]string{"type": "integer", "format": "uint64"},
			"dni":               map[string]string{"type": "integer", "format": "uint64"},
			"ghi":               map[string]string{"type": "integer", "format": "uint64"},
			"lat_tilt":          map[string]string{"type": "integer", "format": "uint64"},
			"dni_units":         map[string]string{"type": "integer", "format": "uint64"},
			"ghi_units":         map[string]string{"type": "integer", "format": "uint64"},
			"lat_tilt_units":    map[string]string{"type": "integer", "format": "uint64"},
			"last_updated":      map[string]string{"type": "integer", "format": "uint64"},
		},
	}

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Solar Registry API",
			"description": "Authenticated key-value registry of solar-irradiance measurements keyed by geographic coordinate, with freshness and suitability queries",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Solar Registry Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/registry/init": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Initialize registry",
					"description": "Create an empty registry for the authenticated owner. Fails if one already exists.",
					"parameters":  authHeaders,
					"responses": map[string]interface{}{
						"201": map[string]interface{}{
							"description": "Registry created",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"owner":           map[string]string{"type": "string"},
											"total_locations": map[string]string{"type": "integer", "format": "uint64"},
											"update_count":    map[string]string{"type": "integer", "format": "uint64"},
											"created_at":      map[string]string{"type": "string", "format": "date-time"},
										},
									},
								},
							},
						},
						"401": map[string]interface{}{"description": "Invalid or missing credentials"},
						"409": map[string]interface{}{"description": "Registry already initialized"},
					},
				},
			},
			"/api/registry/measurements": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Upsert measurement",
					"description": "Store one encoded measurement under its location key. A new key grows total_locations; every accepted write grows update_count.",
					"parameters":  authHeaders,
					"requestBody": map[string]interface{}{
						"required": true,
						"content": map[string]interface{}{
							"application/json": map[string]interface{}{
								"schema": map[string]interface{}{
									"type": "object",
									"properties": map[string]interface{}{
										"latitude":    map[string]string{"type": "integer", "format": "uint64"},
										"longitude":   map[string]string{"type": "integer", "format": "uint64"},
										"dni":         map[string]string{"type": "integer", "format": "uint64"},
										"ghi":         map[string]string{"type": "integer", "format": "uint64"},
										"lat_tilt":    map[string]string{"type": "integer", "format": "uint64"},
										"observed_at": map[string]string{"type": "integer", "format": "uint64"},
									},
								},
							},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Measurement stored"},
						"401": map[string]interface{}{"description": "Invalid or missing credentials"},
						"403": map[string]interface{}{"description": "Caller is not the registry owner"},
						"404": map[string]interface{}{"description": "Registry not initialized"},
						"422": map[string]interface{}{"description": "Observation timestamp is in the future"},
					},
				},
			},
			"/api/registry/{owner}/measurement": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get measurement",
					"description": "Return the stored measurement for one location key",
					"parameters":  append([]map[string]interface{}{ownerParam}, locationParams...),
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Stored measurement",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": measurementSchema,
								},
							},
						},
						"404": map[string]interface{}{"description": "Registry not initialized or location unknown"},
					},
				},
			},
			"/api/registry/{owner}/measurement/exists": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Check key presence",
					"description": "Whether a measurement is stored for the key. A missing registry answers false, not an error.",
					"parameters":  append([]map[string]interface{}{ownerParam}, locationParams...),
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Presence flag",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"exists": map[string]string{"type": "boolean"},
										},
									},
								},
							},
						},
					},
				},
			},
			"/api/registry/{owner}/measurement/fresh": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Check freshness",
					"description": "Whether the stored measurement is at most max_age_seconds old",
					"parameters": append(append([]map[string]interface{}{ownerParam}, locationParams...), map[string]interface{}{
						"name":        "max_age_seconds",
						"in":          "query",
						"description": "Maximum acceptable age in seconds",
						"required":    true,
						"schema":      map[string]string{"type": "integer", "format": "uint64"},
					}),
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Freshness flag",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"fresh": map[string]string{"type": "boolean"},
										},
									},
								},
							},
						},
					},
				},
			},
			"/api/registry/{owner}/measurement/suitable": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Check suitability",
					"description": "Whether the stored DNI meets the threshold",
					"parameters": append(append([]map[string]interface{}{ownerParam}, locationParams...), map[string]interface{}{
						"name":        "min_dni",
						"in":          "query",
						"description": "Minimum acceptable DNI in hundredths",
						"required":    true,
						"schema":      map[string]string{"type": "integer", "format": "uint64"},
					}),
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Suitability flag",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"suitable": map[string]string{"type": "boolean"},
										},
									},
								},
							},
						},
					},
				},
			},
			"/api/registry/{owner}/stats": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Registry counters",
					"description": "Distinct locations ever inserted and total accepted writes",
					"parameters":  []map[string]interface{}{ownerParam},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Counter snapshot",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"owner":           map[string]string{"type": "string"},
											"total_locations": map[string]string{"type": "integer", "format": "uint64"},
											"update_count":    map[string]string{"type": "integer", "format": "uint64"},
										},
									},
								},
							},
						},
						"404": map[string]interface{}{"description": "Registry not initialized"},
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Liveness plus a backing store ping",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "API is healthy",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"status": map[string]string{"type": "string"},
										},
									},
								},
							},
						},
						"503": map[string]interface{}{"description": "Backing store unreachable"},
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
