package domain

import "math"

// MaxAmount is the largest credit quantity any figure may hold. Persistent
// stores keep quantities in signed 64-bit columns.
const MaxAmount uint64 = math.MaxInt64
