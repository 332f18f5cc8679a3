package tracking

import "fmt"

func JobStatusKey(jobID string) string {
	return fmt.Sprintf("video:job:%s", jobID)
}

func BatchSummaryKey(batchID string) string {
	return fmt.Sprintf("video:batch:%s", batchID)
}
