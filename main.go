package main

import "github.com/ValentinKolb/dBook/cmd"

func main() {
	cmd.Execute()
}
