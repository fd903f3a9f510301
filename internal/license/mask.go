package license

// MaskLicenseKey masks a license key for safe logging.
func MaskLicenseKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:8] + "..."
}
