package main

import "github.com/erasmus-without-paper/ewp-registry-service-sub003/cmd"

// Version can be set during build with -ldflags
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
