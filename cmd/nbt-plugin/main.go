package main

import (
	"context"

	"github.com/redpanda-data/benthos/v4/public/service"

	// Bring in the standard inputs, outputs and processors.
	_ "github.com/redpanda-data/benthos/v4/public/components/pure"
)

func main() {
	service.RunCLI(context.Background())
}
