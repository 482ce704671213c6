// Copyright Contributors to the testsys project

package jobs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatchlogs"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	testsyserrors "github.com/testsys-io/testsys/internal/testsys/apierrors"
)

// timeNow is overridden in tests; production code always uses time.Now.
var timeNow = time.Now

// ArchiveLogs ships the named Job's pod logs to CloudWatch Logs, gated by
// archiveLogs, per spec.md §4.1/§6's CONTROLLER_ARCHIVE_LOGS contract.
// Grounded on the source project's job/mod.rs archive_logs (create the log
// group tolerating AlreadyExists, create a timestamped log stream, put the
// log events). Failure here must never fail a reconciliation, so callers
// should log the returned error rather than propagate it as fatal.
func ArchiveLogs(ctx context.Context, c client.Client, restClient corev1Getter, archiveLogs bool, logGroup, namespace, jobName string) error {
	if !archiveLogs {
		return nil
	}

	logger := logf.FromContext(ctx).WithName("archive-logs")

	pod, err := getPod(ctx, c, namespace, jobName)
	if err != nil {
		return testsyserrors.Wrap(testsyserrors.KindTransient, "jobs.ArchiveLogs", err)
	}

	logs, err := podLogs(ctx, restClient, pod)
	if err != nil {
		return testsyserrors.Wrap(testsyserrors.KindTransient, "jobs.ArchiveLogs", err)
	}

	sess, err := session.NewSessionWithOptions(session.Options{SharedConfigState: session.SharedConfigEnable})
	if err != nil {
		return testsyserrors.Wrap(testsyserrors.KindTransient, "jobs.ArchiveLogs", err)
	}
	cwl := cloudwatchlogs.New(sess)

	if _, err := cwl.CreateLogGroupWithContext(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(logGroup),
	}); err != nil {
		if awsErr, ok := err.(awserr.Error); !ok || awsErr.Code() != cloudwatchlogs.ErrCodeResourceAlreadyExistsException {
			return testsyserrors.Wrap(testsyserrors.KindTransient, "jobs.ArchiveLogs", err)
		}
	}

	streamName := fmt.Sprintf("%s-%d", jobName, timeNow().Unix())
	if _, err := cwl.CreateLogStreamWithContext(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(logGroup),
		LogStreamName: aws.String(streamName),
	}); err != nil {
		return testsyserrors.Wrap(testsyserrors.KindTransient, "jobs.ArchiveLogs", err)
	}

	_, err = cwl.PutLogEventsWithContext(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(logGroup),
		LogStreamName: aws.String(streamName),
		LogEvents: []*cloudwatchlogs.InputLogEvent{
			{
				Message:   aws.String(logs),
				Timestamp: aws.Int64(timeNow().UnixMilli()),
			},
		},
	})
	if err != nil {
		return testsyserrors.Wrap(testsyserrors.KindTransient, "jobs.ArchiveLogs", err)
	}

	logger.Info("archived job logs", "job", jobName, "logGroup", logGroup, "logStream", streamName)
	return nil
}

// corev1Getter abstracts the typed clientset's pod-logs call so tests can
// substitute a fake. *kubernetes.Clientset does not satisfy it directly;
// ClientsetLogClient adapts it via CoreV1().Pods(ns).GetLogs(name, opts)
// and the returned *rest.Request's Stream method.
type corev1Getter interface {
	PodLogStream(ctx context.Context, namespace, podName string, opts *corev1.PodLogOptions) (io.ReadCloser, error)
}

func podLogs(ctx context.Context, getter corev1Getter, pod *corev1.Pod) (string, error) {
	if getter == nil {
		return "", fmt.Errorf("no log client configured")
	}
	stream, err := getter.PodLogStream(ctx, pod.Namespace, pod.Name, &corev1.PodLogOptions{Follow: false})
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, stream); err != nil {
		return "", err
	}
	return buf.String(), nil
}
