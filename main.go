package main

import "github.com/nhatdang2003/tms-backend/cmd"

func main() {
	cmd.Execute()
}
