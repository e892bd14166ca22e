package main

import "audio-interviewer/internal/cli"

func main() {
	cli.Execute()
}
