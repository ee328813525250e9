package main

import (
	"github.com/sirupsen/logrus"
	"github.com/supabase/siwx/cmd"
)

func main() {
	if err := cmd.RootCommand().Execute(); err != nil {
		logrus.Fatal(err)
	}
}
