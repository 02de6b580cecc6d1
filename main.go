package main

import "github.com/railwayapp/crudkit/cmd/crudkit"

func main() {
	crudkit.Execute()
}
