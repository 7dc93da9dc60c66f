package main

import "github.com/frahmantamala/billable-dashboard/cmd"

func main() {
	cmd.Execute()
}
