package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/flowforge/agentflow/sse"
)

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve workflow events over SSE and accept run requests over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog()
			if err != nil {
				return err
			}
			engine, events, err := buildEngine(cat)
			if err != nil {
				return err
			}

			router := gin.Default()
			router.GET("/metrics", gin.WrapH(promhttp.Handler()))
			router.GET("/stream", sse.NewHandler(events, nil).Stream())
			router.POST("/runs", func(c *gin.Context) {
				var body struct {
					Task       string `json:"task" binding:"required"`
					Input      string `json:"input"`
					WorkflowID string `json:"workflowId"`
				}
				if err := c.ShouldBindJSON(&body); err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				if body.WorkflowID == "" {
					body.WorkflowID = uuid.NewString()
				}

				go func() {
					_ = engine.Start(context.Background(), body.WorkflowID, body.Task, body.Input)
				}()
				c.JSON(http.StatusAccepted, gin.H{"workflowId": body.WorkflowID})
			})

			return router.Run(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")

	return cmd
}
