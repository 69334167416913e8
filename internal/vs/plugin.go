package vs

// Host API version the plugin is written against. Only 4.0 calls are used.
const (
	APIMajor = 4
	APIMinor = 0
)

// APIVersion is the packed API version reported at registration.
var APIVersion = MakeVersion(APIMajor, APIMinor)

// MakeVersion packs a major/minor pair the way the host expects.
func MakeVersion(major, minor int) int { return major<<16 | minor }

// Function is one function a plugin registers.
type Function struct {
	Name    string
	Args    string
	Returns string
}

// Plugin is the registration record handed to the host at load time.
type Plugin struct {
	ID         string
	Namespace  string
	Name       string
	Version    int
	APIVersion int
	Functions  []Function
}
