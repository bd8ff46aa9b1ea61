// ABOUTME: Product identity reported by every lisa-odas binary
// ABOUTME: Used in server/hello, device info and the UI header
package version

import "fmt"

const (
	Version      = "0.3.0"
	Product      = "lisa-odas"
	Manufacturer = "LISA project"
)

// String returns "product/version" plus the wire protocol it speaks.
func String(protocolVersion int) string {
	return fmt.Sprintf("%s/%s (odas/%d)", Product, Version, protocolVersion)
}
