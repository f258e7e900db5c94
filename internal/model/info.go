package model

// ApplicationInfo describes the running build.
type ApplicationInfo struct {
	Revision    string
	Branch      string
	Environment string
}
