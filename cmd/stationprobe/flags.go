package main

// GlobalFlags are persistent flags; set ones override the environment.
type GlobalFlags struct {
	ConfigPath string
	Port       int
	LogLevel   string
}

// CheckFlags holds flags for the check command.
type CheckFlags struct {
	Compact bool
}
