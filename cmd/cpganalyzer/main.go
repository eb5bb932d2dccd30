// Command cpganalyzer runs the analysis service: a process-local HTTP
// worker that decodes JVM class files and returns facts over a small wire
// protocol. Flag parsing, signal handling, and graceful http.Server
// shutdown follow the usual pattern, extended to also honor a POST
// /shutdown endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jcpg/internal/analyzer"
)

func main() {
	port := flag.String("port", "", "HTTP port (default 8971). Can be set via PORT env.")
	concurrency := flag.Int("concurrency", 0, "Bounded decode worker pool size (0 = runtime.NumCPU())")
	flag.Parse()

	if *port == "" {
		*port = os.Getenv("PORT")
	}
	if *port == "" {
		*port = "8971"
	}

	svc := analyzer.NewService()
	if *concurrency > 0 {
		svc.Concurrency = *concurrency
	}
	app := analyzer.NewApp(svc)

	srv := &http.Server{
		Addr:         ":" + *port,
		Handler:      app.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // analyze batches can be large; the per-batch timeout lives on the client side
	}

	go func() {
		log.Printf("cpganalyzer listening on http://localhost:%s", *port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Println("signal received, shutting down")
	case <-app.ShutdownCh:
		log.Println("shutdown requested via POST /shutdown")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
		os.Exit(1)
	}
	log.Println("bye")
}
