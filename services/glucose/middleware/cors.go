// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides HTTP middleware for the glucose service.
//
// This package contains middleware for browser cross-origin access and
// request rate limiting. Authentication is intentionally absent: the
// service is deployed on a private network behind the dashboard.
package middleware

import (
	"regexp"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// lanOriginPattern matches dashboard dev servers running on LAN hosts
// (Vite on 5173, CRA on 3000).
var lanOriginPattern = regexp.MustCompile(`^http://192\.168\.\d+\.\d+:(3000|5173)$`)

// defaultOrigins are the dashboard origins always allowed.
var defaultOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
	"http://localhost:5173",
	"http://127.0.0.1:5173",
}

// CORS returns the cross-origin middleware for the dashboard.
//
// Inputs:
//   - extraOrigins: Additional allowed origins from configuration,
//     appended to the built-in localhost dev origins
func CORS(extraOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins:     append(append([]string{}, defaultOrigins...), extraOrigins...),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) bool {
			return lanOriginPattern.MatchString(origin)
		},
		MaxAge: 12 * time.Hour,
	}
	return cors.New(cfg)
}
