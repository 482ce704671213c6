// Copyright Contributors to the testsys project

package jobs

import (
	"context"
	"io"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes"
)

// ClientsetLogClient adapts a real *kubernetes.Clientset to corev1Getter for
// production wiring; see cmd/controller/main.go.
type ClientsetLogClient struct {
	Clientset *kubernetes.Clientset
}

func (l ClientsetLogClient) PodLogStream(ctx context.Context, namespace, podName string, opts *corev1.PodLogOptions) (io.ReadCloser, error) {
	return l.Clientset.CoreV1().Pods(namespace).GetLogs(podName, opts).Stream(ctx)
}
