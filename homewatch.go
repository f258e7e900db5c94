package homewatch

var (
	// Revision stores current git revision of the application
	//nolint
	Revision string

	// Branch stores current branch
	//nolint
	Branch string

	// Env stores current environment
	//nolint
	Env string = "production"
)

// UserAgent is sent with every outgoing notification request.
func UserAgent() string {
	if len(Revision) == 0 {
		return "homewatch/dev"
	}

	return "homewatch/" + Revision
}
