//go:build !cgo || !ngx

package ngx

// SDK is the vendor-backed Loader. This build has no SDK linked in.
type SDK struct{}

// Load always fails with ErrUnavailable.
func (SDK) Load(cfg Config) (Feature, error) { return nil, ErrUnavailable }
