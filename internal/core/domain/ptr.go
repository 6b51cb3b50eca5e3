package domain

// Pointer helpers for optional record fields.

func Uint64Ptr(v uint64) *uint64    { return &v }
func Uint32Ptr(v uint32) *uint32    { return &v }
func Int64Ptr(v int64) *int64       { return &v }
func Int32Ptr(v int32) *int32       { return &v }
func Float64Ptr(v float64) *float64 { return &v }
func StringPtr(v string) *string    { return &v }
func BoolPtr(v bool) *bool          { return &v }
