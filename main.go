package main

import (
	"log"
	"os"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/edeleiter/vulkanmon/config"
	"github.com/edeleiter/vulkanmon/model"
	"github.com/edeleiter/vulkanmon/renderer"
)

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetOutput(os.Stdout)
	log.Println("Starting vulkanmon")
	log.Printf("Using GoLang: [%s]", runtime.Version())
}

func onIteration(event sdl.Event, c *renderer.Core) {
	switch ev := event.(type) {
	case *sdl.KeyboardEvent:
		if ev.Type == sdl.KEYUP {
			switch ev.Keysym.Sym {
			case sdl.K_r:
				c.RequestShaderReload()
			case sdl.K_w, sdl.K_UP:
				c.Cam.Move(mgl32.Vec3{0, 0, 1})
			case sdl.K_s, sdl.K_DOWN:
				c.Cam.Move(mgl32.Vec3{0, 0, -1})
			case sdl.K_a, sdl.K_LEFT:
				c.Cam.Move(mgl32.Vec3{-1, 0, 0})
			case sdl.K_d, sdl.K_RIGHT:
				c.Cam.Move(mgl32.Vec3{1, 0, 0})
			case sdl.K_0:
				c.Cam.Reset()
			}
		}
	}
}

func main() {
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	cam := model.NewCamera(45, 0.1, 100)
	mesh := model.NewTexturedCube()

	core, err := renderer.NewCore(cfg, cam, mesh)
	if err != nil {
		log.Printf("Renderer bootstrap failed: %v", err)
		os.Exit(1)
	}

	if err := core.Loop(onIteration); err != nil {
		log.Printf("Render loop aborted: %v", err)
		core.Destroy()
		os.Exit(1)
	}
	core.Destroy()
}
