// Copyright (C) 2025 Dia-Log Health (eng@dialog-health.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package series

import "errors"

// Sentinel errors for series normalization.
var (
	// ErrEmptySeries is returned when no usable numeric samples remain
	// after filtering. This is a client-input fault, not a system fault:
	// the HTTP layer maps it to 400, never 500.
	ErrEmptySeries = errors.New("no usable glucose samples")
)
