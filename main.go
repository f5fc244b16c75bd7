package main

import (
	_ "time/tzdata"

	"tapandstamp/app"
)

func main() {
	app.Run()
}
