package autostudent

// AssembleContext merges the assignment's own text with every summarized
// text unit into one ContextBundle. It is a pure function: outcomes arrive
// in canonical order (resources in original order, then transcript-derived
// outcomes) and every failure is recorded in the manifest by resource
// identifier and reason. Nothing is silently dropped.
func AssembleContext(runID string, assignment Assignment, outcomes []FetchOutcome, artifacts []SummaryArtifact) ContextBundle {
	byResource := make(map[string]SummaryArtifact, len(artifacts))
	for _, artifact := range artifacts {
		byResource[artifact.ResourceID] = artifact
	}

	manifest := Manifest{RunID: runID}
	var ordered []SummaryArtifact

	for _, outcome := range outcomes {
		switch outcome.Type() {
		case FetchOutcomeTypeContent, FetchOutcomeTypeTranscript:
			artifact, ok := byResource[outcome.ResourceID]
			if !ok {
				// A successful outcome without an artifact means the
				// summarization stage was skipped for it; treat the raw
				// text as the artifact so the invariant holds.
				artifact = artifactFromOutcome(outcome)
			}
			ordered = append(ordered, artifact)
			manifest.Included = append(manifest.Included, outcome.ResourceID)
			if artifact.WasSummarized {
				manifest.Summarized = append(manifest.Summarized, outcome.ResourceID)
			}
		case FetchOutcomeTypeFailure:
			manifest.Omitted = append(manifest.Omitted, ManifestEntry{
				ResourceID: outcome.ResourceID,
				Reason:     outcome.Failure.Reason,
				Detail:     outcome.Failure.Message,
			})
		}
	}

	return ContextBundle{
		AssignmentID:   assignment.ID,
		AssignmentText: assignment.Description,
		Artifacts:      ordered,
		Manifest:       manifest,
	}
}

func artifactFromOutcome(outcome FetchOutcome) SummaryArtifact {
	if outcome.Transcript != nil {
		return SummaryArtifact{
			ResourceID:     outcome.ResourceID,
			Text:           outcome.Transcript.Text,
			FromTranscript: true,
		}
	}
	return SummaryArtifact{
		ResourceID: outcome.ResourceID,
		Text:       outcome.Content.Text,
	}
}
