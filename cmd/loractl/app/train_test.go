package app

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embedops/loractl/internal/runtime"
)

// referenceCommandLine is the invocation the reference configuration
// must assemble, byte for byte.
const referenceCommandLine = "accelerate launch --num_processes=1 --mixed_precision=fp16 " +
	"peft_lora_embedding_semantic_search.py " +
	"--dataset_name=../data/quora_dq_train.csv --max_length=70 " +
	"--model_name_or_path=intfloat/e5-small-v2 " +
	"--per_device_train_batch_size=64 --per_device_eval_batch_size=128 " +
	"--learning_rate=5e-4 --weight_decay=0.0 --num_train_epochs=3 " +
	"--gradient_accumulation_steps=1 --output_dir=../model/peft_lora_e5 " +
	"--with_tracking --report_to=tensorboard --seed=42 --use_peft " +
	"--checkpointing_steps=epoch --dataset_handling=streaming"

// execute runs the CLI with the given arguments in an isolated project
// directory and captures stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewLoractlCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--project", t.TempDir()}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func TestTrainDryRun(t *testing.T) {
	out, err := execute(t, "train", "--dry-run")
	require.NoError(t, err)

	assert.Equal(t, referenceCommandLine+"\n", out)
}

func TestTrainDryRunOverrides(t *testing.T) {
	out, err := execute(t, "train", "--dry-run",
		"--dataset-handling", "memory",
		"--epochs", "1",
		"--seed", "7",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "--dataset_handling=memory")
	assert.Contains(t, out, "--num_train_epochs=1")
	assert.Contains(t, out, "--seed=7")
	assert.NotContains(t, out, "--dataset_handling=streaming")
}

func TestTrainDryRunBothHandlingModes(t *testing.T) {
	for _, mode := range []string{"memory", "streaming"} {
		out, err := execute(t, "train", "--dry-run", "--dataset-handling", mode)
		require.NoError(t, err, "mode %s must assemble a valid command", mode)
		assert.Contains(t, out, "--dataset_handling="+mode)
	}
}

func TestTrainRejectsInvalidHandling(t *testing.T) {
	_, err := execute(t, "train", "--dry-run", "--dataset-handling", "mmap")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataset_handling")
}

func TestTrainRejectsInvalidPrecision(t *testing.T) {
	_, err := execute(t, "train", "--dry-run", "--mixed-precision", "fp64")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mixed_precision")
}

func TestTrainRejectsMissingDataset(t *testing.T) {
	_, err := execute(t, "train")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "dataset")
	assert.Contains(t, err.Error(), "quora_dq_train.csv")
}

func TestHostDatasetPath(t *testing.T) {
	tests := []struct {
		name    string
		dataset string
		want    string
		ok      bool
	}{
		{"relative under mount", "../data/quora_dq_train.csv", "/project/data/quora_dq_train.csv", true},
		{"dot relative", "./train.csv", "/project/script/train.csv", true},
		{"absolute under mount", "/workspace/data/train.csv", "/project/data/train.csv", true},
		{"hub name", "quora", "", false},
		{"namespaced hub name", "embedding-data/QQP_triples", "", false},
		{"escapes mount", "../../etc/passwd", "", false},
		{"absolute outside mount", "/tmp/train.csv", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := hostDatasetPath("/project", "/workspace/script", tt.dataset)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// fakeRuntime runs a job whose log stream delivers its final bytes
// only after Wait has reported the exit, the way a followed container
// stream behaves on process exit.
type fakeRuntime struct {
	pr   *io.PipeReader
	pw   *io.PipeWriter
	tail string
	code int64
}

func (f *fakeRuntime) Create(ctx context.Context, params *runtime.CreateParams) (*runtime.Job, error) {
	return &runtime.Job{ID: params.JobID, Image: params.Image}, nil
}

func (f *fakeRuntime) Start(ctx context.Context, jobID string) error { return nil }

func (f *fakeRuntime) Stop(ctx context.Context, jobID string) error { return nil }

func (f *fakeRuntime) Logs(ctx context.Context, jobID string, follow bool) (runtime.LogStream, error) {
	return f.pr, nil
}

func (f *fakeRuntime) Wait(ctx context.Context, jobID string) (int64, error) {
	f.pw.Write([]byte(f.tail))
	f.pw.Close()
	return f.code, nil
}

func TestExecuteJobDrainsLogsAfterExit(t *testing.T) {
	pr, pw := io.Pipe()
	rt := &fakeRuntime{pr: pr, pw: pw, tail: "error: dataset corrupt\n", code: 1}

	var out bytes.Buffer
	code, err := executeJob(context.Background(), rt, &runtime.CreateParams{JobID: "train-test"}, &out)
	require.NoError(t, err)

	assert.Equal(t, int64(1), code)
	assert.Contains(t, out.String(), "error: dataset corrupt")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "Version:"))
}
