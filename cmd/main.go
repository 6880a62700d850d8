package main

import (
	"github.com/corray333/backend-labs/foodorder/internal/app"
	"github.com/corray333/backend-labs/foodorder/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
