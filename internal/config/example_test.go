package config_test

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/normanking/alann/internal/config"
)

func Example() {
	dir, err := os.MkdirTemp("", "alann-config-example")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer os.RemoveAll(dir)

	params, err := config.LoadFromPath(filepath.Join(dir, "config.yaml"))
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	if err := params.Validate(); err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(params.ConceptBagSize)
	// Output: 1000
}
