package groove

// maxConsecutiveDecodeErrors bounds how many times in a row the worker
// retries the same item after a Decode error before giving up on it. Without
// this, a Decoder that errors without ever advancing (see
// media.ErrCodecNotBound) would spin the worker forever on one item while
// holding the coordinator lock.
const maxConsecutiveDecodeErrors = 8

// runWorker is the sole producer goroutine. It loops until abort, decoding
// exactly one frame from the decode head per iteration and distributing it
// to every attached sink group, applying backpressure per the playlist's
// fill mode. The worker never holds the coordinator lock across a blocking
// framework call that could deadlock with a sink's consumer; each iteration
// holds the lock only for one bounded decode step. Grounded on
// arung-agamani-denpa-radio's Broadcaster.Start(ctx) single-producer loop
// shape, generalized from channel-signalling + context cancellation to the
// sync.Cond coordinator this engine uses instead.
func (p *Playlist) runWorker() {
	defer close(p.workerDone)

	for {
		p.mu.Lock()

		if p.abortRequest {
			p.mu.Unlock()
			return
		}

		// decode_head == nil.
		if p.decodeHead == nil {
			if !p.sentEndOfQ {
				p.sinks.forEach(func(g *sinkGroup) {
					for _, s := range g.sinks {
						s.queue.putSentinel()
					}
				})
				p.sentEndOfQ = true
			}
			p.decodeHeadCond.Wait()
			p.mu.Unlock()
			continue
		}

		// Clear sent_end_of_q now that there is a decode head.
		p.sentEndOfQ = false

		// Fill predicate.
		if p.full() {
			p.drainCond.Wait()
			p.mu.Unlock()
			continue
		}

		// Effective volume.
		effectiveVolume := p.volume * p.decodeHead.gain

		// Decode one frame, distribute it.
		endOfItem := p.decodeOneLocked(effectiveVolume)

		// Advance decode_head on end-of-item.
		if endOfItem {
			p.decodeHead = p.decodeHead.next
			if p.decodeHead != nil {
				p.decodeHead.file.RequestSeek(0, false)
			}
		}

		// Lock held only for this one bounded decode step: release it here
		// so Insert/Remove/Attach/Count/Detach are never starved by a long
		// run of un-backpressured decoding.
		p.mu.Unlock()
	}
}

// full evaluates the fill predicate for the current fill mode. Caller must
// hold the coordinator lock.
func (p *Playlist) full() bool {
	any := false
	all := true
	saw := false
	p.sinks.forEach(func(g *sinkGroup) {
		for _, s := range g.sinks {
			saw = true
			if s.full() {
				any = true
			} else {
				all = false
			}
		}
	})
	if !saw {
		return false
	}
	if p.fillMode == FillModeAnySinkFull {
		return any
	}
	return all
}

// decodeOneLocked rebuilds the filter graph if needed, honours pause/seek/
// eof transitions, decodes one frame, and distributes it (ref-counted) to
// every attached sink group. Returns true when the item has reached its
// end. Caller must hold the coordinator lock.
func (p *Playlist) decodeOneLocked(effectiveVolume float64) bool {
	item := p.decodeHead
	file := item.file

	if file.AbortRequested() {
		return true
	}

	if p.paused {
		file.Pause()
	} else {
		file.Resume()
	}

	if err := p.filterGraph.ensure(&p.sinks, file.Format(), effectiveVolume); err != nil {
		logDecodeError(p.log, kindGraphBuildFailed, item, err)
		return true
	}

	file.LockSeek()
	if pos, flush, pending := file.TakeSeek(); pending {
		if err := file.SeekDecoder(pos); err != nil {
			logDecodeError(p.log, kindSeekFailed, item, err)
		}
		if flush {
			p.sinks.forEach(func(g *sinkGroup) {
				for _, s := range g.sinks {
					s.queue.flush()
				}
			})
		}
		file.SetEOF(false)
	}
	eofAlready := file.IsEOF()
	file.UnlockSeek()

	if eofAlready {
		return true
	}

	frame, eof, err := file.Decode()
	if err != nil {
		logDecodeError(p.log, kindDecoderError, item, err)
		if streak := file.RegisterDecodeError(); streak >= maxConsecutiveDecodeErrors {
			p.log.Error("ending item after repeated decode errors", "consecutive_errors", streak)
			return true
		}
		return false
	}
	file.RegisterDecodeSuccess()
	if eof {
		file.LockSeek()
		file.SetEOF(true)
		file.UnlockSeek()
		return true
	}
	if frame == nil {
		return false
	}

	groups := p.filterGraph.render(frame, effectiveVolume)
	pos := file.AudioClock()

	maxBytes := 0
	maxBytesPerSec := 0.0
	for _, rg := range groups {
		rep := rg.plan.group.representative()
		produced := rg.data.Len() / rg.data.Channels() * rep.bytesPerFrame
		if produced > maxBytes {
			maxBytes = produced
			maxBytesPerSec = rep.bytesPerSec
		}

		buf := NewBuffer(rg.data, item, pos, len(rg.plan.group.sinks))
		for _, s := range rg.plan.group.sinks {
			if !s.put(buf) {
				buf.Unref()
			}
		}
	}

	if maxBytes > 0 && maxBytesPerSec > 0 {
		file.AdvanceClock(float64(maxBytes) / maxBytesPerSec)
	}

	p.drainCond.Broadcast()
	return false
}

// representativeBytesPerSec returns the byte rate of the first attached
// group's representative, or 0 when no sink is attached. decodeOneLocked
// does not use it: it advances the audio clock by the bytes of the group
// that produced the most data divided by that same group's byte rate.
func (p *Playlist) representativeBytesPerSec() float64 {
	var rate float64
	p.sinks.forEach(func(g *sinkGroup) {
		if rate == 0 {
			rate = g.representative().bytesPerSec
		}
	})
	return rate
}
