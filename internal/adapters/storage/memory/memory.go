// Package memory implementa los repositorios en memoria (modo dev y tests).
// Cada repo devuelve el ErrNotFound de su dominio.
package memory

import "errors"

var errIDRequired = errors.New("id required")

var errExists = errors.New("already exists")
