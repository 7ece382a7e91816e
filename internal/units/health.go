package units

// IsUnhealthy classifies a unit from its state pair.
//
// Masked units are always healthy since masking is an administrator's
// decision. Loaded units are unhealthy unless active. Every other load
// state (error, not_found, unknown) is unhealthy.
func IsUnhealthy(active ActiveState, load LoadState) bool {
	switch load {
	case LoadMasked:
		return false
	case LoadLoaded:
		return active != ActiveActive
	default:
		return true
	}
}
