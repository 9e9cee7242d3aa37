package workflow

import "quill/internal/queue"

// ConfigureStages registers the concrete stage handlers the workflow will
// run. Lanes without a handler are left out entirely, which lets tests run a
// single lane in isolation.
func (m *Manager) ConfigureStages(set StageSet) {
	lanes := make(map[laneKind]*laneState)
	order := make([]laneKind, 0, 2)

	if set.Transcriber != nil {
		lane := &laneState{
			kind:                 laneTranscribe,
			name:                 "transcribe",
			stageName:            "transcriber",
			handler:              set.Transcriber,
			startStatus:          queue.StatusPending,
			processingStatus:     queue.StatusTranscribing,
			doneStatus:           queue.StatusTranscribed,
			notificationsEnabled: true,
		}
		lanes[lane.kind] = lane
		order = append(order, lane.kind)
	}
	if set.Exporter != nil {
		lane := &laneState{
			kind:             laneExport,
			name:             "export",
			stageName:        "exporter",
			handler:          set.Exporter,
			startStatus:      queue.StatusTranscribed,
			processingStatus: queue.StatusExporting,
			doneStatus:       queue.StatusCompleted,
		}
		lanes[lane.kind] = lane
		order = append(order, lane.kind)
	}

	m.mu.Lock()
	m.lanes = lanes
	m.laneOrder = order
	m.mu.Unlock()
}
