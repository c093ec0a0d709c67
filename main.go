package main

import (
	"fmt"
	"os"

	"fleetdata/config"
	"fleetdata/dao/query"
	"fleetdata/logutils"
	"fleetdata/service"

	"github.com/gin-gonic/gin"
)

func main() {
	r := gin.Default()
	err := query.InitDB()
	if err != nil {
		fmt.Println("err init:", err)
		os.Exit(1)
	}

	cfg := config.GetConfig()
	service.BulkInsertMax = cfg.BulkInsertMax

	r.GET("/health", service.Health)

	api := r.Group("/api/v1", service.AuthMiddleware())
	service.RegisterVehicle(api)
	service.RegisterDriver(api)
	service.RegisterSensor(api)
	service.RegisterMeasurement(api)
	service.RegisterDatastream(api)
	service.RegisterScene(api)
	service.RegisterPipeline(api)
	service.RegisterPipelineData(api)
	service.RegisterPipelineState(api)
	service.RegisterPipelineDependency(api)
	service.RegisterDataset(api)

	err = r.Run(cfg.Server.Addr)
	if err != nil {
		logutils.Log.Fatal(err)
	}
}
