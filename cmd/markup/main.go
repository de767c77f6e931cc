package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/irfansharif/markup/internal/app"
	"github.com/irfansharif/markup/internal/config"
	"github.com/irfansharif/markup/internal/library"
	"github.com/irfansharif/markup/internal/logging"
	"github.com/irfansharif/markup/internal/render"
)

const logFlags = log.Ltime | log.Lshortfile

var runtimeLogger *log.Logger = log.New(io.Discard, "", 0)

func init() {
	// OpenGL contexts are tied to specific OS threads - let's pin to just one.
	runtime.LockOSThread()
	log.SetFlags(logFlags)

	if os.Getenv("MARKUP_DEBUG_RUNTIME") == "1" {
		runtimeLogger = log.New(os.Stdout, "[runtime] ", log.Ltime|log.Lmsgprefix)
	}
}

func main() {
	configPath := flag.String("config", os.Getenv("MARKUP_CONFIG"), "path to a YAML config file")
	dir := flag.String("dir", "", "diagrams directory (overrides config and DIAGRAMS_DIR)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [diagram ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	logging.FromEnv("MARKUP_DEBUG", os.Stderr)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *dir != "" {
		cfg.DiagramsDir = *dir
	}

	names := flag.Args()
	if len(names) == 0 {
		if names, err = library.List(cfg.DiagramsDir); err != nil {
			log.Fatalf("Failed to list diagrams: %v", err)
		}
	}

	if err := glfw.Init(); err != nil {
		log.Fatalf("Failed to initialize GLFW: %v", err)
	}
	defer glfw.Terminate()

	// Configure GLFW window hints - use OpenGL 4.1.
	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)

	window, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, "markup", nil, nil)
	if err != nil {
		log.Fatalf("Failed to create window: %v", err)
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)

	if err := gl.Init(); err != nil {
		log.Fatalf("Failed to initialize OpenGL: %v", err)
	}

	renderer, err := render.NewRenderer()
	if err != nil {
		log.Fatalf("Failed to set up renderer: %v", err)
	}
	defer renderer.Delete()

	ww, wh := window.GetSize()
	fw, fh := window.GetFramebufferSize()
	renderer.SetWindow(fw, fh, float64(fw)/float64(max(ww, 1)))
	application := app.NewApp(cfg, renderer, float64(ww), float64(wh))

	for _, name := range names {
		if _, err := application.Open(name); err != nil {
			log.Printf("Opening %s: %v", name, err)
		}
	}

	var libraryEvents <-chan library.Event
	if watcher, err := library.NewWatcher(cfg.DiagramsDir); err != nil {
		log.Printf("Not watching %s: %v", cfg.DiagramsDir, err)
	} else {
		defer watcher.Close()
		libraryEvents = watcher.Events()
	}

	// Initialize event handlers.
	eventHandlers := NewEventHandlers(application, window)

	title := ""
	frameCount, frameTimeSum := 0, 0.0
	lastStatsUpdate := time.Now()

	// Main loop.
	for !window.ShouldClose() {
		frameStart := time.Now()

		eventHandlers.drainLibrary(libraryEvents)

		application.Draw()
		window.SwapBuffers()
		glfw.WaitEventsTimeout(1.0 / 30)

		application.Sync()
		if t := application.Title(); t != title {
			window.SetTitle(t)
			title = t
		}

		frameTimeSum += time.Since(frameStart).Seconds() * 1000.0 // ms
		frameCount++
		if now := time.Now(); now.Sub(lastStatsUpdate) >= time.Second {
			stats := renderer.Stats()
			runtimeLogger.Printf("Frames:      %d (%.2f ms/frame avg)", frameCount, frameTimeSum/float64(frameCount))
			runtimeLogger.Printf("Render time: %.2f µs (last draw), %.2f ms (last prepare), %d vertices",
				stats.LastDrawTimeUs, stats.LastPrepareTimeMs, stats.Vertices)
			frameCount, frameTimeSum = 0, 0.0
			lastStatsUpdate = now
		}
	}
	application.Sync()
}
