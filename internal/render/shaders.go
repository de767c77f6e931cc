package render

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// ShaderManager holds the two programs the renderer switches between: flat
// coloured triangles for annotations and chrome, and textured quads for the
// diagram bitmap and text labels.
type ShaderManager struct {
	color   program
	texture program
}

type program struct {
	id         uint32
	uTransform int32 // uniform location for transformation matrix
}

// Vertex shader. Applies the uniform transformation matrix to the vertices
// and forwards the colour to the fragment shader.
const colorVertexShader = `
#version 330 core
layout (location = 0) in vec2 aPos;
layout (location = 1) in vec4 aColor;

uniform mat4 uTransform;

out vec4 vColor;

void main() {
    gl_Position = uTransform * vec4(aPos, 0.0, 1.0);
    vColor = aColor;
}
` + "\x00"

const colorFragmentShader = `
#version 330 core
in vec4 vColor;
out vec4 FragColor;

void main() {
    FragColor = vColor;
}
` + "\x00"

const textureVertexShader = `
#version 330 core
layout (location = 0) in vec2 aPos;
layout (location = 1) in vec2 aUV;

uniform mat4 uTransform;

out vec2 vUV;

void main() {
    gl_Position = uTransform * vec4(aPos, 0.0, 1.0);
    vUV = aUV;
}
` + "\x00"

const textureFragmentShader = `
#version 330 core
in vec2 vUV;
out vec4 FragColor;

uniform sampler2D uTexture;

void main() {
    FragColor = texture(uTexture, vUV);
}
` + "\x00"

// NewShaderManager compiles and links both programs.
func NewShaderManager() (*ShaderManager, error) {
	color, err := newProgram(colorVertexShader, colorFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("color program: %w", err)
	}
	texture, err := newProgram(textureVertexShader, textureFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("texture program: %w", err)
	}
	gl.UseProgram(texture.id)
	gl.Uniform1i(gl.GetUniformLocation(texture.id, gl.Str("uTexture\x00")), 0)
	return &ShaderManager{color: color, texture: texture}, nil
}

// UseColor binds the colour program with the given transform.
func (sm *ShaderManager) UseColor(matrix [16]float32) {
	gl.UseProgram(sm.color.id)
	gl.UniformMatrix4fv(sm.color.uTransform, 1, false, &matrix[0])
}

// UseTexture binds the texture program with the given transform.
func (sm *ShaderManager) UseTexture(matrix [16]float32) {
	gl.UseProgram(sm.texture.id)
	gl.UniformMatrix4fv(sm.texture.uTransform, 1, false, &matrix[0])
}

// Delete releases both programs.
func (sm *ShaderManager) Delete() {
	gl.DeleteProgram(sm.color.id)
	gl.DeleteProgram(sm.texture.id)
}

func newProgram(vertexSource, fragmentSource string) (program, error) {
	vertexShader, err := compileShader(vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return program{}, err
	}
	defer gl.DeleteShader(vertexShader)

	fragmentShader, err := compileShader(fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return program{}, err
	}
	defer gl.DeleteShader(fragmentShader)

	id := gl.CreateProgram()
	gl.AttachShader(id, vertexShader)
	gl.AttachShader(id, fragmentShader)
	gl.LinkProgram(id)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(id, logLength, nil, gl.Str(logText))
		return program{}, fmt.Errorf("shader linking failed: %s", logText)
	}

	return program{
		id:         id,
		uTransform: gl.GetUniformLocation(id, gl.Str("uTransform\x00")),
	}, nil
}

// compileShader compiles a single shader from source.
func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("shader compilation failed: %s", logText)
	}
	return shader, nil
}
