// Package kubernetes runs each step in its own pod. The job's runs-on label
// maps to a container image; the step command runs under sh -c and the pod
// log becomes the step log.
package kubernetes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8s "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"forgeci/internal/config"
	"forgeci/internal/core/domain"
	output "forgeci/internal/core/ports/output"
)

type Executor struct {
	client       k8s.Interface
	namespace    string
	defaultImage string
	images       map[string]string
	pollInterval time.Duration
}

// NewExecutor creates a pod-per-step executor
func NewExecutor(cfg *config.KubernetesConfig) (*Executor, error) {
	var restCfg *rest.Config
	var err error

	if cfg.InCluster {
		restCfg, err = rest.InClusterConfig()
	} else if cfg.KubeConfigPath != "" {
		restCfg, err = clientcmd.BuildConfigFromFlags("", cfg.KubeConfigPath)
	} else {
		// Try default kubeconfig location
		home, _ := os.UserHomeDir()
		kubeconfig := filepath.Join(home, ".kube", "config")
		restCfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		return nil, fmt.Errorf("build k8s config: %w", err)
	}

	client, err := k8s.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("create k8s client: %w", err)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "forgeci-jobs"
	}
	defaultImage := cfg.DefaultImage
	if defaultImage == "" {
		defaultImage = "ubuntu:22.04"
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	return &Executor{
		client:       client,
		namespace:    namespace,
		defaultImage: defaultImage,
		images:       cfg.Images,
		pollInterval: pollInterval,
	}, nil
}

var _ output.JobExecutor = (*Executor)(nil)

func (e *Executor) Name() string {
	return "kubernetes"
}

func (e *Executor) RunStep(ctx context.Context, job *domain.Job, step output.StepRun) (*output.StepOutcome, error) {
	pod := e.buildPod(job, step)

	created, err := e.client.CoreV1().Pods(e.namespace).Create(ctx, pod, metav1.CreateOptions{})
	if err != nil {
		return nil, fmt.Errorf("create step pod: %w", err)
	}
	defer e.deletePod(created.Name)

	exitCode, err := e.waitForPod(ctx, created.Name)
	if err != nil {
		return nil, err
	}

	logBytes, err := e.client.CoreV1().Pods(e.namespace).
		GetLogs(created.Name, &corev1.PodLogOptions{}).
		Do(ctx).Raw()
	if err != nil {
		// The outcome is still valid without the log.
		logBytes = []byte(fmt.Sprintf("fetch pod log failed: %v", err))
	}

	return &output.StepOutcome{ExitCode: exitCode, Log: logBytes}, nil
}

func (e *Executor) buildPod(job *domain.Job, step output.StepRun) *corev1.Pod {
	env := make([]corev1.EnvVar, 0, len(step.Env))
	for k, v := range step.Env {
		env = append(env, corev1.EnvVar{Name: k, Value: v})
	}

	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name: "forgeci-step-" + uuid.New().String(),
			Labels: map[string]string{
				"forgeci/job-id": job.ID.String(),
				"forgeci/run-id": job.RunID.String(),
			},
		},
		Spec: corev1.PodSpec{
			RestartPolicy: corev1.RestartPolicyNever,
			Containers: []corev1.Container{
				{
					Name:    "step",
					Image:   e.imageFor(step.RunsOn),
					Command: []string{"sh", "-c", step.Command},
					Env:     env,
				},
			},
		},
	}
}

func (e *Executor) imageFor(runsOn string) string {
	if image, ok := e.images[runsOn]; ok {
		return image
	}
	return e.defaultImage
}

func (e *Executor) waitForPod(ctx context.Context, name string) (int, error) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return -1, fmt.Errorf("wait for step pod: %w", ctx.Err())
		case <-ticker.C:
		}

		pod, err := e.client.CoreV1().Pods(e.namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return -1, fmt.Errorf("get step pod: %w", err)
		}

		switch pod.Status.Phase {
		case corev1.PodSucceeded, corev1.PodFailed:
			return containerExitCode(pod), nil
		}
	}
}

func containerExitCode(pod *corev1.Pod) int {
	for _, status := range pod.Status.ContainerStatuses {
		if status.State.Terminated != nil {
			return int(status.State.Terminated.ExitCode)
		}
	}
	if pod.Status.Phase == corev1.PodSucceeded {
		return 0
	}
	return -1
}

// deletePod cleans up with a fresh context: the step context may already be
// canceled or past its deadline.
func (e *Executor) deletePod(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = e.client.CoreV1().Pods(e.namespace).Delete(ctx, name, metav1.DeleteOptions{})
}
