package main

import (
	"log"

	"github.com/telecare/oncall/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
