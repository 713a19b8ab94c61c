package main

import (
	"fmt"
	"os"

	"github.com/ThomasSchneider-94/Karuta-Project-sub000/cmd"
)

func main() {
	if err := cmd.RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}