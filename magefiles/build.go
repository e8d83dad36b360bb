//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

const shaderDir = "assets/shaders"

// stage source -> output name read by the application config
var shaderStages = map[string]string{
	"shader.vert": "vert.spv",
	"shader.frag": "frag.spv",
}

// Compiles the GLSL sources to SPIR-V with glslc, falling back to glslangValidator.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the application binary.
func (Build) App() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/vulkantesting", "."), withStream())
	return err
}

func buildShaders() error {
	compiler, args := shaderCompiler()
	if compiler == "" {
		return fmt.Errorf("neither glslc nor glslangValidator found in PATH")
	}
	for src, out := range shaderStages {
		in := filepath.Join(shaderDir, src)
		dst := filepath.Join(shaderDir, out)
		if _, err := executeCmd(compiler, withArgs(args(in, dst)...), withStream()); err != nil {
			return err
		}
	}
	return nil
}

func shaderCompiler() (string, func(in, out string) []string) {
	if hasCommand("glslc") {
		return "glslc", func(in, out string) []string { return []string{in, "-o", out} }
	}
	if hasCommand("glslangValidator") {
		return "glslangValidator", func(in, out string) []string { return []string{"-V", in, "-o", out} }
	}
	return "", nil
}
