// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error definitions for concurrency module.

package concurrency

import "errors"

// ErrInvalidCapacity indicates a non-positive capacity
var ErrInvalidCapacity = errors.New("invalid capacity")
