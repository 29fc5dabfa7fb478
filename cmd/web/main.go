package main

import "crmchat_backend/internal/app"

func main() {
	app.Run()
}
