package main

import (
	"flag"
	"fmt"
	"geetestapi/routes"
	"io"
	"log"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	Port = 2323
)

func main() {
	flag.Parse()

	e := echo.New()

	// Debug Setting
	e.Logger.SetOutput(io.Discard)
	e.Debug = false

	// Middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"}, // Allow all origins
		AllowMethods:     []string{"*"}, // Allow all methods
		AllowHeaders:     []string{"*"}, // Allow all headers
		AllowCredentials: true,          // Allow cookies and credentials
	}))

	// Solver
	e.POST("/createTask", routes.CreateTaskRoute)
	e.POST("/getTask", routes.GetTaskRoute)
	e.GET("/getPresets", routes.GetPresets)

	// Utility Endpoints
	e.POST("/extractCaptchaId", routes.ExtractCaptchaIDRoute)

	// Start server
	fmt.Printf("Server is running on PORT: %d\n", Port)
	if err := e.Start(fmt.Sprintf(":%d", Port)); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
