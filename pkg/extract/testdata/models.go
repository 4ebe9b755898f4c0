// Package testdata holds fixture struct declarations for
// pkg/extract's integration test, exercising the real go/packages
// loading path rather than synthetic go/types values.
package testdata

// Address is a plain record with no hdv tags: extract falls back to the
// Go field names as column names.
type Address struct {
	Street  string
	City    string
	Country string
	ZipCode string
}

// User nests Address, once required and once optional, and renames a
// couple of columns via the hdv tag.
type User struct {
	ID          uint64 `hdv:"id"`
	Name        string
	Email       string
	Age         uint64
	HomeAddress Address  `hdv:"home_address"`
	WorkAddress *Address `hdv:"work_address"`
	internal    string
}
