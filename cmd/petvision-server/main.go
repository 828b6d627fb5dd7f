// @title PetVision 服务端 API 文档
// @version 1.0
// @description 宠物图片分析服务，包含兽医分析与犬粮推荐两个流程
// @host localhost:8080
// @BasePath /api
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"petvision-server-go/internal/bootstrap"
)

func main() {
	fmt.Printf("[%s] [INFO] [引导] 开始启动 petvision-server...\n", time.Now().Format("2006-01-02 15:04:05.000"))
	if err := bootstrap.Run(context.Background()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "petvision-server failed: %v\n", err)
		os.Exit(1)
	}
}
