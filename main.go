package main

import (
	"github.com/manifest-network/stxgen/cmd/stxgen"
)

func main() {
	stxgen.Execute()
}
